package protocol

// AdminPayload is the closed union of device-administration messages carried
// inside a packet. Every variant embeds `adminPayload` so the set can be
// matched exhaustively with a type switch.
type AdminPayload interface {
	Payload
	isAdminPayload()
}

type adminPayload struct{}

func (adminPayload) isPayload()      {}
func (adminPayload) isAdminPayload() {}

// requests

type GetChannelRequest struct {
	adminPayload
	Index int
}

type GetOwnerRequest struct {
	adminPayload
}

type GetConfigRequest struct {
	adminPayload
	Variant ConfigVariant
}

type GetModuleConfigRequest struct {
	adminPayload
	Variant ModuleVariant
}

type GetCannedMessagesRequest struct {
	adminPayload
}

type GetRingtoneRequest struct {
	adminPayload
}

type SetChannelRequest struct {
	adminPayload
	Channel Channel
}

type SetOwnerRequest struct {
	adminPayload
	Owner Owner
}

type SetConfigRequest struct {
	adminPayload
	Config Config
}

type SetModuleConfigRequest struct {
	adminPayload
	ModuleConfig ModuleConfig
}

type SetCannedMessagesRequest struct {
	adminPayload
	Messages string
}

type SetRingtoneRequest struct {
	adminPayload
	Ringtone string
}

// responses

type ChannelResponse struct {
	adminPayload
	Channel Channel
}

type OwnerResponse struct {
	adminPayload
	Owner Owner
}

type ConfigResponse struct {
	adminPayload
	Config Config
}

type ModuleConfigResponse struct {
	adminPayload
	ModuleConfig ModuleConfig
}

type CannedMessagesResponse struct {
	adminPayload
	Messages string
}

type RingtoneResponse struct {
	adminPayload
	Ringtone string
}

// sent by newer firmware before privileged admin operations.
// the sync layer does not act on it.
type SessionPasskeyResponse struct {
	adminPayload
	Passkey []byte
}
