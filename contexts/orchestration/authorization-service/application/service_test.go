package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"maestro/contexts/orchestration/authorization-service/adapters/memory"
	"maestro/contexts/orchestration/authorization-service/domain/entities"
	domainerrors "maestro/contexts/orchestration/authorization-service/domain/errors"
	"maestro/contexts/orchestration/authorization-service/ports"
	orchv1 "maestro/contracts/orchestration/v1"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type routedMessage struct {
	Domain orchv1.Domain
	Msg    orchv1.ProcessorMessage
}

type fakeRouter struct {
	routed     []routedMessage
	registered []entities.ExternalDomain
	routeErr   error
}

func (r *fakeRouter) RouteProcessorMessage(_ context.Context, domain orchv1.Domain, msg orchv1.ProcessorMessage) error {
	if r.routeErr != nil {
		return r.routeErr
	}
	r.routed = append(r.routed, routedMessage{Domain: domain, Msg: msg})
	return nil
}

func (r *fakeRouter) RegisterDomain(_ context.Context, domain entities.ExternalDomain) error {
	r.registered = append(r.registered, domain)
	return nil
}

type registryFixture struct {
	store   *memory.Store
	router  *fakeRouter
	clock   *fakeClock
	service Service
}

func newRegistryFixture() *registryFixture {
	store := memory.NewStore()
	router := &fakeRouter{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return &registryFixture{
		store:  store,
		router: router,
		clock:  clock,
		service: Service{
			Repo:          store,
			Dedup:         store,
			Outbox:        store,
			Router:        router,
			Clock:         clock,
			IDGen:         store,
			Owner:         "owner",
			MainProcessor: "main-processor",
		},
	}
}

func executeDetails() orchv1.MessageDetails {
	return orchv1.MessageDetails{Type: orchv1.MessageTypeExecute}
}

func mainAtomicSubroutine(addresses ...string) orchv1.Subroutine {
	functions := make([]orchv1.AtomicFunction, 0, len(addresses))
	for _, address := range addresses {
		functions = append(functions, orchv1.AtomicFunction{
			Domain:          orchv1.MainDomain(),
			ContractAddress: address,
			MessageDetails:  executeDetails(),
		})
	}
	return orchv1.Subroutine{
		Kind:   orchv1.SubroutineAtomic,
		Atomic: &orchv1.AtomicSubroutine{Functions: functions},
	}
}

func externalAtomicSubroutine(domain string, address string) orchv1.Subroutine {
	return orchv1.Subroutine{
		Kind: orchv1.SubroutineAtomic,
		Atomic: &orchv1.AtomicSubroutine{Functions: []orchv1.AtomicFunction{{
			Domain:          orchv1.ExternalDomain(domain),
			ContractAddress: address,
			MessageDetails:  executeDetails(),
		}}},
	}
}

func executeMessages(bodies ...string) []orchv1.Message {
	messages := make([]orchv1.Message, 0, len(bodies))
	for _, body := range bodies {
		messages = append(messages, orchv1.Message{
			Type: orchv1.MessageTypeExecute,
			Body: json.RawMessage(body),
		})
	}
	return messages
}

func authorizationInput(label string, sub orchv1.Subroutine) ports.AuthorizationInput {
	return ports.AuthorizationInput{
		Label:      label,
		Mode:       entities.ModePermissionless,
		Subroutine: sub,
	}
}

func cosmwasmDomainInput(name string) ports.ExternalDomainInput {
	return ports.ExternalDomainInput{
		Name:             name,
		Environment:      entities.EnvironmentCosmwasm,
		ProcessorAddress: "processor-" + name,
		CallbackOrigin:   "relayer-" + name,
		Polytone: &entities.PolytoneConfig{
			NoteAddress:    "note-" + name,
			VoiceAddress:   "voice-" + name,
			TimeoutSeconds: 300,
		},
	}
}

func (f *registryFixture) mustCreate(t *testing.T, input ports.AuthorizationInput) {
	t.Helper()
	if err := f.service.CreateAuthorizations(context.Background(), "owner", []ports.AuthorizationInput{input}); err != nil {
		t.Fatalf("CreateAuthorizations: %v", err)
	}
}

func (f *registryFixture) settleProxy(t *testing.T, name string) {
	t.Helper()
	err := f.service.ProxyCallback(context.Background(), "relayer-"+name, orchv1.ProxyCallback{
		DomainName: name,
		Outcome:    orchv1.ProxyCreated,
	})
	if err != nil {
		t.Fatalf("ProxyCallback: %v", err)
	}
}

func TestCreateAuthorizationsValidation(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	sub := mainAtomicSubroutine("token-ledger")

	err := f.service.CreateAuthorizations(ctx, "stranger", []ports.AuthorizationInput{authorizationInput("ok", sub)})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("non-admin create: got %v, want ErrUnauthorized", err)
	}

	err = f.service.CreateAuthorizations(ctx, "owner", []ports.AuthorizationInput{authorizationInput("", sub)})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("empty label: got %v, want ErrInvalidInput", err)
	}

	bad := authorizationInput("bad-mode", sub)
	bad.Mode = entities.AuthorizationMode("sometimes")
	err = f.service.CreateAuthorizations(ctx, "owner", []ports.AuthorizationInput{bad})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("bad mode: got %v, want ErrInvalidInput", err)
	}

	permissioned := authorizationInput("no-grants", sub)
	permissioned.Mode = entities.ModePermissionedWithLimit
	err = f.service.CreateAuthorizations(ctx, "owner", []ports.AuthorizationInput{permissioned})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("permissioned without grants: got %v, want ErrInvalidInput", err)
	}

	err = f.service.CreateAuthorizations(ctx, "owner", []ports.AuthorizationInput{
		authorizationInput("ghost-target", externalAtomicSubroutine("nowhere", "vault")),
	})
	if !errors.Is(err, domainerrors.ErrUnknownDomain) {
		t.Fatalf("unknown target domain: got %v, want ErrUnknownDomain", err)
	}

	f.mustCreate(t, authorizationInput("transfer", sub))
	err = f.service.CreateAuthorizations(ctx, "owner", []ports.AuthorizationInput{authorizationInput("transfer", sub)})
	if !errors.Is(err, domainerrors.ErrLabelExists) {
		t.Fatalf("duplicate label: got %v, want ErrLabelExists", err)
	}

	stored, err := f.store.GetAuthorization(ctx, "transfer")
	if err != nil {
		t.Fatalf("GetAuthorization: %v", err)
	}
	if stored.MaxConcurrentExecutions != 1 {
		t.Fatalf("default max concurrent executions = %d, want 1", stored.MaxConcurrentExecutions)
	}
	if stored.Priority != orchv1.PriorityMedium {
		t.Fatalf("default priority = %s, want medium", stored.Priority)
	}
}

func TestAddExternalDomainsRegistersWithRouter(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()

	input := cosmwasmDomainInput("neutron")
	input.Polytone = nil
	err := f.service.AddExternalDomains(ctx, "owner", []ports.ExternalDomainInput{input})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("cosmwasm without polytone config: got %v, want ErrInvalidInput", err)
	}

	if err := f.service.AddExternalDomains(ctx, "owner", []ports.ExternalDomainInput{cosmwasmDomainInput("neutron")}); err != nil {
		t.Fatalf("AddExternalDomains: %v", err)
	}
	if len(f.router.registered) != 1 || f.router.registered[0].Name != "neutron" {
		t.Fatalf("router registrations = %+v, want one for neutron", f.router.registered)
	}

	domain, err := f.store.GetExternalDomain(ctx, "neutron")
	if err != nil {
		t.Fatalf("GetExternalDomain: %v", err)
	}
	if domain.ProxyState != entities.ProxyStatePendingResponse {
		t.Fatalf("fresh cosmwasm proxy state = %s, want pending_response", domain.ProxyState)
	}

	err = f.service.AddExternalDomains(ctx, "owner", []ports.ExternalDomainInput{cosmwasmDomainInput("neutron")})
	if !errors.Is(err, domainerrors.ErrDuplicateDomain) {
		t.Fatalf("duplicate domain: got %v, want ErrDuplicateDomain", err)
	}
}

func TestSubOwnerAdministration(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	sub := mainAtomicSubroutine("token-ledger")

	err := f.service.AddSubOwner(ctx, "stranger", "helper")
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("non-owner AddSubOwner: got %v, want ErrUnauthorized", err)
	}
	if err := f.service.AddSubOwner(ctx, "owner", "helper"); err != nil {
		t.Fatalf("AddSubOwner: %v", err)
	}

	err = f.service.CreateAuthorizations(ctx, "helper", []ports.AuthorizationInput{authorizationInput("by-helper", sub)})
	if err != nil {
		t.Fatalf("sub-owner create: %v", err)
	}

	if err := f.service.RemoveSubOwner(ctx, "owner", "helper"); err != nil {
		t.Fatalf("RemoveSubOwner: %v", err)
	}
	err = f.service.CreateAuthorizations(ctx, "helper", []ports.AuthorizationInput{authorizationInput("after-removal", sub)})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("removed sub-owner create: got %v, want ErrUnauthorized", err)
	}
}

func TestSendMsgsAssignsMonotonicExecutionIDs(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	f.mustCreate(t, authorizationInput("transfer", mainAtomicSubroutine("token-ledger")))

	first, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{"amount":1}`))
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := f.service.Callback(ctx, "main-processor", orchv1.ExecutionCallback{
		ExecutionID: first,
		Result:      orchv1.SuccessResult(),
	}); err != nil {
		t.Fatalf("callback: %v", err)
	}
	second, err := f.service.SendMsgs(ctx, "bob", "transfer", executeMessages(`{"amount":2}`))
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("execution ids = %d, %d, want 1, 2", first, second)
	}

	if len(f.router.routed) != 2 {
		t.Fatalf("routed %d messages, want 2", len(f.router.routed))
	}
	for i, routed := range f.router.routed {
		if routed.Msg.Kind != orchv1.ProcessorSendMsgs {
			t.Fatalf("routed[%d] kind = %s, want send_msgs", i, routed.Msg.Kind)
		}
		if !routed.Domain.IsMain() {
			t.Fatalf("routed[%d] domain = %s, want main", i, routed.Domain.String())
		}
		if routed.Msg.Batch.ExecutionID != uint64(i+1) {
			t.Fatalf("routed[%d] batch id = %d, want %d", i, routed.Msg.Batch.ExecutionID, i+1)
		}
	}

	execution, err := f.store.GetExecution(ctx, second)
	if err != nil {
		t.Fatalf("GetExecution: %v", err)
	}
	if execution.Status != entities.ExecutionQueued || execution.Initiator != "bob" {
		t.Fatalf("execution = %+v, want queued by bob", execution)
	}
}

func TestSendMsgsRejectsDisabledAndInactive(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	f.mustCreate(t, authorizationInput("transfer", mainAtomicSubroutine("token-ledger")))

	if err := f.service.DisableAuthorization(ctx, "owner", "transfer"); err != nil {
		t.Fatalf("DisableAuthorization: %v", err)
	}
	_, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`))
	if !errors.Is(err, domainerrors.ErrDisabled) {
		t.Fatalf("disabled send: got %v, want ErrDisabled", err)
	}
	if err := f.service.EnableAuthorization(ctx, "owner", "transfer"); err != nil {
		t.Fatalf("EnableAuthorization: %v", err)
	}

	notBefore := f.clock.Now().Add(time.Hour)
	err = f.service.ModifyAuthorization(ctx, "owner", "transfer", ports.ModifyAuthorizationInput{NotBefore: &notBefore})
	if err != nil {
		t.Fatalf("ModifyAuthorization: %v", err)
	}
	_, err = f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`))
	if !errors.Is(err, domainerrors.ErrNotActive) {
		t.Fatalf("not-yet-valid send: got %v, want ErrNotActive", err)
	}

	f.clock.Advance(2 * time.Hour)
	if _, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`)); err != nil {
		t.Fatalf("send inside window: %v", err)
	}
}

func TestSendMsgsEnforcesConcurrencyLimit(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	f.mustCreate(t, authorizationInput("transfer", mainAtomicSubroutine("token-ledger")))

	id, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`))
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	_, err = f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`))
	if !errors.Is(err, domainerrors.ErrConcurrencyLimit) {
		t.Fatalf("second send: got %v, want ErrConcurrencyLimit", err)
	}

	// Finalizing the in-flight execution frees the slot.
	if err := f.service.Callback(ctx, "main-processor", orchv1.ExecutionCallback{
		ExecutionID: id,
		Result:      orchv1.SuccessResult(),
	}); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if _, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`)); err != nil {
		t.Fatalf("send after finalize: %v", err)
	}
}

func TestSendMsgsValidatesMessageShape(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()

	sub := mainAtomicSubroutine("token-ledger")
	sub.Atomic.Functions[0].MessageDetails.ParamRestrictions = []orchv1.ParamRestriction{
		{Kind: orchv1.ParamMustBeValue, Keys: []string{"transfer", "denom"}, Value: json.RawMessage(`"untrn"`)},
		{Kind: orchv1.ParamCannotBeIncluded, Keys: []string{"admin"}},
	}
	f.mustCreate(t, authorizationInput("transfer", sub))

	_, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`, `{}`))
	if !errors.Is(err, domainerrors.ErrMessageCount) {
		t.Fatalf("message count mismatch: got %v, want ErrMessageCount", err)
	}

	migrate := []orchv1.Message{{Type: orchv1.MessageTypeMigrate, Body: json.RawMessage(`{}`), CodeID: 7}}
	_, err = f.service.SendMsgs(ctx, "alice", "transfer", migrate)
	if !errors.Is(err, domainerrors.ErrMessageShape) {
		t.Fatalf("message type mismatch: got %v, want ErrMessageShape", err)
	}

	_, err = f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{"transfer":{"denom":"uatom"}}`))
	if !errors.Is(err, domainerrors.ErrMessageShape) {
		t.Fatalf("wrong param value: got %v, want ErrMessageShape", err)
	}

	_, err = f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{"transfer":{"denom":"untrn"},"admin":"alice"}`))
	if !errors.Is(err, domainerrors.ErrMessageShape) {
		t.Fatalf("forbidden param present: got %v, want ErrMessageShape", err)
	}

	if _, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{"transfer":{"denom":"untrn"}}`)); err != nil {
		t.Fatalf("conforming send: %v", err)
	}
}

func TestSendMsgsPermissionedWithLimit(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()

	input := authorizationInput("limited", mainAtomicSubroutine("token-ledger"))
	input.Mode = entities.ModePermissionedWithLimit
	input.MaxConcurrentExecutions = 10
	input.Grants = []ports.GrantInput{
		{Grantee: "alice", Uses: 1},
		{Grantee: "root", Unlimited: true},
	}
	f.mustCreate(t, input)

	_, err := f.service.SendMsgs(ctx, "mallory", "limited", executeMessages(`{}`))
	if !errors.Is(err, domainerrors.ErrCallerNotPermitted) {
		t.Fatalf("ungranted caller: got %v, want ErrCallerNotPermitted", err)
	}

	// A synchronous rejection hands the reserved use back.
	_, err = f.service.SendMsgs(ctx, "alice", "limited", executeMessages(`{}`, `{}`))
	if !errors.Is(err, domainerrors.ErrMessageCount) {
		t.Fatalf("rejected send: got %v, want ErrMessageCount", err)
	}
	grant, err := f.store.GetGrant(ctx, "limited", "alice")
	if err != nil {
		t.Fatalf("GetGrant: %v", err)
	}
	if grant.RemainingUses != 1 {
		t.Fatalf("uses after refund = %d, want 1", grant.RemainingUses)
	}

	if _, err := f.service.SendMsgs(ctx, "alice", "limited", executeMessages(`{}`)); err != nil {
		t.Fatalf("granted send: %v", err)
	}
	grant, _ = f.store.GetGrant(ctx, "limited", "alice")
	if grant.RemainingUses != 0 {
		t.Fatalf("uses after accepted send = %d, want 0", grant.RemainingUses)
	}

	_, err = f.service.SendMsgs(ctx, "alice", "limited", executeMessages(`{}`))
	if !errors.Is(err, domainerrors.ErrCallerNotPermitted) {
		t.Fatalf("exhausted caller: got %v, want ErrCallerNotPermitted", err)
	}

	// Unlimited grantees never consume uses.
	for i := 0; i < 3; i++ {
		if _, err := f.service.SendMsgs(ctx, "root", "limited", executeMessages(`{}`)); err != nil {
			t.Fatalf("unlimited send %d: %v", i, err)
		}
	}
}

func TestSendMsgsRoutingFailureFreesConcurrencySlot(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	f.mustCreate(t, authorizationInput("transfer", mainAtomicSubroutine("vault")))

	f.router.routeErr = errors.New("bridge unavailable")
	if _, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`)); err == nil {
		t.Fatal("expected routing failure to reject the send")
	}

	failed, err := f.service.Execution(ctx, 1)
	if err != nil {
		t.Fatalf("get execution failed: %v", err)
	}
	if failed.Status != entities.ExecutionFinalized {
		t.Fatalf("execution status = %s, want finalized", failed.Status)
	}
	if failed.Result == nil || failed.Result.Kind != orchv1.ResultRejected {
		t.Fatalf("expected rejected result on the failed row, got %+v", failed.Result)
	}

	// The label's single concurrency slot must be free again.
	f.router.routeErr = nil
	id, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`))
	if err != nil {
		t.Fatalf("send after routing recovery failed: %v", err)
	}
	if id != 2 {
		t.Fatalf("execution id = %d, want 2", id)
	}
}

func TestSendMsgsExternalDomainRequiresCreatedProxy(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()

	if err := f.service.AddExternalDomains(ctx, "owner", []ports.ExternalDomainInput{cosmwasmDomainInput("neutron")}); err != nil {
		t.Fatalf("AddExternalDomains: %v", err)
	}
	f.mustCreate(t, authorizationInput("remote", externalAtomicSubroutine("neutron", "vault")))

	_, err := f.service.SendMsgs(ctx, "alice", "remote", executeMessages(`{}`))
	if !errors.Is(err, domainerrors.ErrProxyNotCreated) {
		t.Fatalf("send before proxy: got %v, want ErrProxyNotCreated", err)
	}

	f.settleProxy(t, "neutron")
	id, err := f.service.SendMsgs(ctx, "alice", "remote", executeMessages(`{}`))
	if err != nil {
		t.Fatalf("send after proxy created: %v", err)
	}
	routed := f.router.routed[len(f.router.routed)-1]
	if routed.Domain.IsMain() || routed.Domain.Name != "neutron" {
		t.Fatalf("routed domain = %s, want external:neutron", routed.Domain.String())
	}
	if routed.Msg.Batch.ExecutionID != id {
		t.Fatalf("routed batch id = %d, want %d", routed.Msg.Batch.ExecutionID, id)
	}
}

func TestMintAuthorizationsAccumulatesUses(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()

	open := authorizationInput("open", mainAtomicSubroutine("token-ledger"))
	f.mustCreate(t, open)
	err := f.service.MintAuthorizations(ctx, "owner", "open", []ports.GrantInput{{Grantee: "alice", Uses: 1}})
	if !errors.Is(err, domainerrors.ErrNotPermissioned) {
		t.Fatalf("mint on permissionless: got %v, want ErrNotPermissioned", err)
	}

	limited := authorizationInput("limited", mainAtomicSubroutine("token-ledger"))
	limited.Mode = entities.ModePermissionedWithLimit
	limited.Grants = []ports.GrantInput{{Grantee: "alice", Uses: 2}}
	f.mustCreate(t, limited)

	if err := f.service.MintAuthorizations(ctx, "owner", "limited", []ports.GrantInput{{Grantee: "alice", Uses: 3}}); err != nil {
		t.Fatalf("MintAuthorizations: %v", err)
	}
	grant, err := f.store.GetGrant(ctx, "limited", "alice")
	if err != nil {
		t.Fatalf("GetGrant: %v", err)
	}
	if grant.RemainingUses != 5 {
		t.Fatalf("accumulated uses = %d, want 5", grant.RemainingUses)
	}
}

func TestAdminQueueOpsRouteToProcessor(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	f.mustCreate(t, authorizationInput("transfer", mainAtomicSubroutine("token-ledger")))

	id, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{}`))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := f.service.EvictMsgs(ctx, "owner", id); err != nil {
		t.Fatalf("EvictMsgs: %v", err)
	}
	evict := f.router.routed[len(f.router.routed)-1].Msg
	if evict.Kind != orchv1.ProcessorEvictMsgs || evict.ExecutionID != id {
		t.Fatalf("evict message = %+v, want evict for %d", evict, id)
	}

	if err := f.service.RemoveMsgs(ctx, "owner", "main", orchv1.Priority("silly"), 0); err != nil {
		t.Fatalf("RemoveMsgs: %v", err)
	}
	remove := f.router.routed[len(f.router.routed)-1].Msg
	if remove.Kind != orchv1.ProcessorRemoveMsgs || remove.Priority != orchv1.PriorityMedium {
		t.Fatalf("remove message = %+v, want remove_msgs on medium", remove)
	}

	if err := f.service.PauseProcessor(ctx, "owner", ""); err != nil {
		t.Fatalf("PauseProcessor: %v", err)
	}
	if err := f.service.ResumeProcessor(ctx, "owner", ""); err != nil {
		t.Fatalf("ResumeProcessor: %v", err)
	}
	last := len(f.router.routed)
	if f.router.routed[last-2].Msg.Kind != orchv1.ProcessorPause || f.router.routed[last-1].Msg.Kind != orchv1.ProcessorResume {
		t.Fatalf("trailing control messages = %s, %s, want pause then resume",
			f.router.routed[last-2].Msg.Kind, f.router.routed[last-1].Msg.Kind)
	}

	err = f.service.EvictMsgs(ctx, "alice", id)
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("non-admin evict: got %v, want ErrUnauthorized", err)
	}
}

func TestAddMsgsRequeuesStoredExecution(t *testing.T) {
	f := newRegistryFixture()
	ctx := context.Background()
	f.mustCreate(t, authorizationInput("transfer", mainAtomicSubroutine("token-ledger")))

	id, err := f.service.SendMsgs(ctx, "alice", "transfer", executeMessages(`{"amount":9}`))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := f.service.AddMsgs(ctx, "owner", id, 0); err != nil {
		t.Fatalf("AddMsgs: %v", err)
	}

	insert := f.router.routed[len(f.router.routed)-1].Msg
	if insert.Kind != orchv1.ProcessorInsertMsgs || insert.Position != 0 {
		t.Fatalf("insert message = %+v, want insert_msgs at head", insert)
	}
	if insert.Batch.ExecutionID != id || len(insert.Batch.Messages) != 1 {
		t.Fatalf("requeued batch = %+v, want original execution %d", insert.Batch, id)
	}
}
