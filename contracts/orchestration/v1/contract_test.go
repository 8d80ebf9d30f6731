package v1

import (
	"testing"
	"time"
)

func TestNormalizePriority(t *testing.T) {
	if got := NormalizePriority(PriorityHigh); got != PriorityHigh {
		t.Fatalf("high normalized to %s", got)
	}
	// Everything else, including unknown labels, falls back to medium.
	for _, p := range []Priority{PriorityMedium, "", "low", "urgent"} {
		if got := NormalizePriority(p); got != PriorityMedium {
			t.Fatalf("NormalizePriority(%q) = %s, want medium", p, got)
		}
	}
}

func TestRetryBudgetRemaining(t *testing.T) {
	noRetry := RetryLogic{Times: RetryNoRetry}
	if noRetry.BudgetRemaining(0) {
		t.Fatal("no_retry allows a retry")
	}

	indefinite := RetryLogic{Times: RetryIndefinitely}
	if !indefinite.BudgetRemaining(1 << 20) {
		t.Fatal("indefinitely exhausted its budget")
	}

	// Amount(2) finalizes on the second consecutive failure: the first
	// failure may retry, the second never does.
	bounded := RetryLogic{Times: RetryAmount, Amount: 2}
	if !bounded.BudgetRemaining(0) {
		t.Fatal("bounded retry denied its first failure a retry")
	}
	if bounded.BudgetRemaining(1) {
		t.Fatal("bounded retry allowed a third attempt")
	}

	single := RetryLogic{Times: RetryAmount, Amount: 1}
	if single.BudgetRemaining(0) {
		t.Fatal("amount(1) must finalize on the first failure")
	}
}

func TestSubroutineViews(t *testing.T) {
	retry := &RetryLogic{Times: RetryAmount, Amount: 3, IntervalSeconds: 30}
	confirmation := &FunctionCallback{Address: "approver"}
	sub := Subroutine{
		Kind: SubroutineNonAtomic,
		NonAtomic: &NonAtomicSubroutine{Functions: []NonAtomicFunction{
			{
				Domain:          ExternalDomain("neutron"),
				ContractAddress: "vault",
				MessageDetails:  MessageDetails{Type: MessageTypeExecute},
				Retry:           retry,
			},
			{
				Domain:          ExternalDomain("neutron"),
				ContractAddress: "splitter",
				MessageDetails:  MessageDetails{Type: MessageTypeExecute},
				Confirmation:    confirmation,
			},
		}},
	}

	if sub.IsAtomic() {
		t.Fatal("non-atomic subroutine reported atomic")
	}
	if got := sub.FunctionCount(); got != 2 {
		t.Fatalf("FunctionCount = %d, want 2", got)
	}
	target, ok := sub.TargetDomain()
	if !ok || target.IsMain() || target.Name != "neutron" {
		t.Fatalf("TargetDomain = %v/%v, want external:neutron", target, ok)
	}

	first, ok := sub.FunctionAt(0)
	if !ok || first.ContractAddress != "vault" || first.Retry != retry {
		t.Fatalf("FunctionAt(0) = %+v, want vault with its retry policy", first)
	}
	second, ok := sub.FunctionAt(1)
	if !ok || second.Confirmation != confirmation {
		t.Fatalf("FunctionAt(1) = %+v, want splitter with confirmation", second)
	}
	if _, ok := sub.FunctionAt(2); ok {
		t.Fatal("FunctionAt past the end reported ok")
	}

	empty := Subroutine{Kind: SubroutineAtomic}
	if count := empty.FunctionCount(); count != 0 {
		t.Fatalf("empty FunctionCount = %d, want 0", count)
	}
	if _, ok := empty.TargetDomain(); ok {
		t.Fatal("empty subroutine has a target domain")
	}
}

func TestDomainEquality(t *testing.T) {
	if !MainDomain().Equal(MainDomain()) {
		t.Fatal("main domains differ")
	}
	if MainDomain().Equal(ExternalDomain("neutron")) {
		t.Fatal("main equals external")
	}
	if !ExternalDomain("neutron").Equal(ExternalDomain("neutron")) {
		t.Fatal("same external domains differ")
	}
	if ExternalDomain("neutron").Equal(ExternalDomain("base")) {
		t.Fatal("different external domains equal")
	}
}

func TestBatchExpiration(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	open := MessageBatch{ExecutionID: 1}
	if open.Expired(now) {
		t.Fatal("batch without deadline expired")
	}

	deadline := now.Add(time.Minute)
	bounded := MessageBatch{ExecutionID: 2, ExpiresAt: &deadline}
	if bounded.Expired(now) {
		t.Fatal("batch expired before its deadline")
	}
	// The deadline instant itself already counts as expired.
	if !bounded.Expired(deadline) {
		t.Fatal("batch not expired at its deadline")
	}
	if !bounded.Expired(deadline.Add(time.Second)) {
		t.Fatal("batch not expired past its deadline")
	}
}

func TestProcessorMessageConstructors(t *testing.T) {
	batch := MessageBatch{ExecutionID: 7}

	send := SendMsgsMessage(batch)
	if send.Kind != ProcessorSendMsgs || send.Batch == nil || send.Batch.ExecutionID != 7 {
		t.Fatalf("send = %+v", send)
	}
	insert := InsertMsgsMessage(batch, 3)
	if insert.Kind != ProcessorInsertMsgs || insert.Position != 3 {
		t.Fatalf("insert = %+v", insert)
	}
	evict := EvictMsgsMessage(7)
	if evict.Kind != ProcessorEvictMsgs || evict.ExecutionID != 7 {
		t.Fatalf("evict = %+v", evict)
	}
	remove := RemoveMsgsMessage(PriorityHigh, 2)
	if remove.Kind != ProcessorRemoveMsgs || remove.Priority != PriorityHigh || remove.Position != 2 {
		t.Fatalf("remove = %+v", remove)
	}
	if PauseMessage().Kind != ProcessorPause || ResumeMessage().Kind != ProcessorResume {
		t.Fatal("pause/resume constructors mislabeled")
	}
}

func TestResultConstructors(t *testing.T) {
	if r := SuccessResult(); r.Kind != ResultSuccess || r.ExecutedCount != 0 {
		t.Fatalf("success = %+v", r)
	}
	if r := RejectedResult("nope"); r.Kind != ResultRejected || r.Reason != "nope" {
		t.Fatalf("rejected = %+v", r)
	}
	if r := PartiallyExecutedResult(2, "stalled"); r.Kind != ResultPartiallyExecuted || r.ExecutedCount != 2 {
		t.Fatalf("partial = %+v", r)
	}
	if r := ExpiredResult(1); r.Kind != ResultExpired || r.ExecutedCount != 1 {
		t.Fatalf("expired = %+v", r)
	}
}
