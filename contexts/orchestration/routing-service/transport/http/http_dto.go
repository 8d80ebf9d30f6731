package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PolytoneRouteDTO struct {
	NoteAddress    string `json:"note_address"`
	VoiceAddress   string `json:"voice_address"`
	TimeoutSeconds uint64 `json:"timeout_seconds"`
}

type HyperlaneRouteDTO struct {
	MailboxAddress string `json:"mailbox_address"`
	DomainID       uint32 `json:"domain_id"`
}

type RouteTargetDTO struct {
	Name             string             `json:"name"`
	Environment      string             `json:"environment"`
	ProcessorAddress string             `json:"processor_address"`
	CallbackOrigin   string             `json:"callback_origin"`
	Polytone         *PolytoneRouteDTO  `json:"polytone,omitempty"`
	Hyperlane        *HyperlaneRouteDTO `json:"hyperlane,omitempty"`
	ProxyCreated     bool               `json:"proxy_created"`
	RegisteredAt     string             `json:"registered_at"`
}

type RouteListResponse struct {
	Status string           `json:"status"`
	Data   []RouteTargetDTO `json:"data"`
}
