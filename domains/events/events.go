package events

// Event type names. These are a stable contract with dashboard observers;
// renaming one is a breaking change.
const (
	TypeCampaignProgress  = "campaign_progress"
	TypeMessageBlockSent  = "message_block_sent"
	TypeCampaignCompleted = "campaign_completed"

	TypeGatewayConnected    = "gateway_connected"
	TypeGatewayDisconnected = "gateway_disconnected"
	TypeGatewayQRCode       = "gateway_qrcode"
)

// Event is the unit handed to the broadcaster; delivery is fire-and-forget.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// CampaignProgress is emitted after every processed contact. Progress is set
// on success, Error on failure.
type CampaignProgress struct {
	CampaignID string   `json:"campaignId"`
	ContactID  string   `json:"contactId"`
	Status     string   `json:"status"`
	Progress   *float64 `json:"progress,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type MessageBlockSent struct {
	CampaignID  string `json:"campaignId"`
	ContactID   string `json:"contactId"`
	BlockIndex  int    `json:"blockIndex"`
	TotalBlocks int    `json:"totalBlocks"`
}

type CampaignCompleted struct {
	CampaignID string `json:"campaignId"`
	Name       string `json:"name"`
}

type GatewayQRCode struct {
	Code string `json:"code"`
}

// IEventBroadcaster fans events out to connected observers. Best effort: the
// emitter never learns whether anyone received the event.
type IEventBroadcaster interface {
	Emit(event Event)
}
