package protocol

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// envelope codec. The envelope and its payload families are encoded as
// protowire messages so the framing stays compatible with varint-based
// radio firmwares. Section payload bytes (Config.Payload and friends) pass
// through untouched.
//
// field numbers:
//
//	Envelope:  1 from, 2 to, 3 id, 4 request_id, 5 payload
//	Payload:   1 admin, 2 routing, 3 traceroute, 4 raw
//	Routing:   1 error
//	Traceroute: 1 route (repeated)
//	Channel:   1 index, 2 role, 3 settings
//	Settings:  1 name, 2 psk, 3 uplink, 4 downlink
//	Config / ModuleConfig: 1 variant, 2 payload
//	Owner:     1 long_name, 2 short_name, 3 licensed

func MarshalEnvelope(env *Envelope) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.From))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.To))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.Id))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(env.RequestId))
	if env.Payload != nil {
		payloadBytes, err := marshalPayload(env.Payload)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 5, payloadBytes)
	}
	return b, nil
}

func UnmarshalEnvelope(b []byte) (*Envelope, error) {
	env := &Envelope{}
	err := eachField(b, func(num protowire.Number, v uint64, m []byte) error {
		switch num {
		case 1:
			env.From = NodeId(v)
		case 2:
			env.To = NodeId(v)
		case 3:
			env.Id = PacketId(v)
		case 4:
			env.RequestId = PacketId(v)
		case 5:
			payload, err := unmarshalPayload(m)
			if err != nil {
				return err
			}
			env.Payload = payload
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

func marshalPayload(payload Payload) ([]byte, error) {
	var b []byte
	switch v := payload.(type) {
	case AdminPayload:
		adminBytes, err := marshalAdmin(v)
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 1, adminBytes)
	case *RoutingPayload:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(v.Error))
		b = appendMessage(b, 2, m)
	case *TraceroutePayload:
		var m []byte
		for _, nodeId := range v.Route {
			m = protowire.AppendTag(m, 1, protowire.VarintType)
			m = protowire.AppendVarint(m, uint64(nodeId))
		}
		b = appendMessage(b, 3, m)
	case *RawPayload:
		b = appendMessage(b, 4, v.Bytes)
	default:
		return nil, fmt.Errorf("unknown payload type %T", payload)
	}
	return b, nil
}

func unmarshalPayload(b []byte) (Payload, error) {
	var payload Payload
	err := eachField(b, func(num protowire.Number, v uint64, m []byte) error {
		switch num {
		case 1:
			admin, err := unmarshalAdmin(m)
			if err != nil {
				return err
			}
			payload = admin
		case 2:
			routing := &RoutingPayload{}
			err := eachField(m, func(num protowire.Number, v uint64, _ []byte) error {
				if num == 1 {
					routing.Error = RouteError(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			payload = routing
		case 3:
			traceroute := &TraceroutePayload{}
			err := eachField(m, func(num protowire.Number, v uint64, _ []byte) error {
				if num == 1 {
					traceroute.Route = append(traceroute.Route, NodeId(v))
				}
				return nil
			})
			if err != nil {
				return err
			}
			payload = traceroute
		case 4:
			payload = &RawPayload{Bytes: m}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// admin variant field numbers
const (
	adminGetChannel             = 1
	adminGetOwner               = 2
	adminGetConfig              = 3
	adminGetModuleConfig        = 4
	adminGetCannedMessages      = 5
	adminGetRingtone            = 6
	adminSetChannel             = 7
	adminSetOwner               = 8
	adminSetConfig              = 9
	adminSetModuleConfig        = 10
	adminSetCannedMessages      = 11
	adminSetRingtone            = 12
	adminChannelResponse        = 13
	adminOwnerResponse          = 14
	adminConfigResponse         = 15
	adminModuleConfigResponse   = 16
	adminCannedMessagesResponse = 17
	adminRingtoneResponse       = 18
	adminSessionPasskeyResponse = 19
)

func marshalAdmin(admin AdminPayload) ([]byte, error) {
	var b []byte
	switch v := admin.(type) {
	case *GetChannelRequest:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(v.Index))
		b = appendMessage(b, adminGetChannel, m)
	case *GetOwnerRequest:
		b = appendMessage(b, adminGetOwner, nil)
	case *GetConfigRequest:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(v.Variant))
		b = appendMessage(b, adminGetConfig, m)
	case *GetModuleConfigRequest:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.VarintType)
		m = protowire.AppendVarint(m, uint64(v.Variant))
		b = appendMessage(b, adminGetModuleConfig, m)
	case *GetCannedMessagesRequest:
		b = appendMessage(b, adminGetCannedMessages, nil)
	case *GetRingtoneRequest:
		b = appendMessage(b, adminGetRingtone, nil)
	case *SetChannelRequest:
		b = appendMessage(b, adminSetChannel, marshalChannel(v.Channel))
	case *SetOwnerRequest:
		b = appendMessage(b, adminSetOwner, marshalOwner(v.Owner))
	case *SetConfigRequest:
		b = appendMessage(b, adminSetConfig, marshalConfig(uint64(v.Config.Variant), v.Config.Payload))
	case *SetModuleConfigRequest:
		b = appendMessage(b, adminSetModuleConfig, marshalConfig(uint64(v.ModuleConfig.Variant), v.ModuleConfig.Payload))
	case *SetCannedMessagesRequest:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.BytesType)
		m = protowire.AppendString(m, v.Messages)
		b = appendMessage(b, adminSetCannedMessages, m)
	case *SetRingtoneRequest:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.BytesType)
		m = protowire.AppendString(m, v.Ringtone)
		b = appendMessage(b, adminSetRingtone, m)
	case *ChannelResponse:
		b = appendMessage(b, adminChannelResponse, marshalChannel(v.Channel))
	case *OwnerResponse:
		b = appendMessage(b, adminOwnerResponse, marshalOwner(v.Owner))
	case *ConfigResponse:
		b = appendMessage(b, adminConfigResponse, marshalConfig(uint64(v.Config.Variant), v.Config.Payload))
	case *ModuleConfigResponse:
		b = appendMessage(b, adminModuleConfigResponse, marshalConfig(uint64(v.ModuleConfig.Variant), v.ModuleConfig.Payload))
	case *CannedMessagesResponse:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.BytesType)
		m = protowire.AppendString(m, v.Messages)
		b = appendMessage(b, adminCannedMessagesResponse, m)
	case *RingtoneResponse:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.BytesType)
		m = protowire.AppendString(m, v.Ringtone)
		b = appendMessage(b, adminRingtoneResponse, m)
	case *SessionPasskeyResponse:
		var m []byte
		m = protowire.AppendTag(m, 1, protowire.BytesType)
		m = protowire.AppendBytes(m, v.Passkey)
		b = appendMessage(b, adminSessionPasskeyResponse, m)
	default:
		return nil, fmt.Errorf("unknown admin payload type %T", admin)
	}
	return b, nil
}

func unmarshalAdmin(b []byte) (AdminPayload, error) {
	var admin AdminPayload
	err := eachField(b, func(num protowire.Number, v uint64, m []byte) error {
		switch num {
		case adminGetChannel:
			request := &GetChannelRequest{}
			err := eachField(m, func(num protowire.Number, v uint64, _ []byte) error {
				if num == 1 {
					request.Index = int(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			admin = request
		case adminGetOwner:
			admin = &GetOwnerRequest{}
		case adminGetConfig:
			request := &GetConfigRequest{}
			err := eachField(m, func(num protowire.Number, v uint64, _ []byte) error {
				if num == 1 {
					request.Variant = ConfigVariant(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			admin = request
		case adminGetModuleConfig:
			request := &GetModuleConfigRequest{}
			err := eachField(m, func(num protowire.Number, v uint64, _ []byte) error {
				if num == 1 {
					request.Variant = ModuleVariant(v)
				}
				return nil
			})
			if err != nil {
				return err
			}
			admin = request
		case adminGetCannedMessages:
			admin = &GetCannedMessagesRequest{}
		case adminGetRingtone:
			admin = &GetRingtoneRequest{}
		case adminSetChannel:
			channel, err := unmarshalChannel(m)
			if err != nil {
				return err
			}
			admin = &SetChannelRequest{Channel: channel}
		case adminSetOwner:
			owner, err := unmarshalOwner(m)
			if err != nil {
				return err
			}
			admin = &SetOwnerRequest{Owner: owner}
		case adminSetConfig:
			variant, payload, err := unmarshalConfig(m)
			if err != nil {
				return err
			}
			admin = &SetConfigRequest{Config: Config{Variant: ConfigVariant(variant), Payload: payload}}
		case adminSetModuleConfig:
			variant, payload, err := unmarshalConfig(m)
			if err != nil {
				return err
			}
			admin = &SetModuleConfigRequest{ModuleConfig: ModuleConfig{Variant: ModuleVariant(variant), Payload: payload}}
		case adminSetCannedMessages:
			text, err := unmarshalText(m)
			if err != nil {
				return err
			}
			admin = &SetCannedMessagesRequest{Messages: text}
		case adminSetRingtone:
			text, err := unmarshalText(m)
			if err != nil {
				return err
			}
			admin = &SetRingtoneRequest{Ringtone: text}
		case adminChannelResponse:
			channel, err := unmarshalChannel(m)
			if err != nil {
				return err
			}
			admin = &ChannelResponse{Channel: channel}
		case adminOwnerResponse:
			owner, err := unmarshalOwner(m)
			if err != nil {
				return err
			}
			admin = &OwnerResponse{Owner: owner}
		case adminConfigResponse:
			variant, payload, err := unmarshalConfig(m)
			if err != nil {
				return err
			}
			admin = &ConfigResponse{Config: Config{Variant: ConfigVariant(variant), Payload: payload}}
		case adminModuleConfigResponse:
			variant, payload, err := unmarshalConfig(m)
			if err != nil {
				return err
			}
			admin = &ModuleConfigResponse{ModuleConfig: ModuleConfig{Variant: ModuleVariant(variant), Payload: payload}}
		case adminCannedMessagesResponse:
			text, err := unmarshalText(m)
			if err != nil {
				return err
			}
			admin = &CannedMessagesResponse{Messages: text}
		case adminRingtoneResponse:
			text, err := unmarshalText(m)
			if err != nil {
				return err
			}
			admin = &RingtoneResponse{Ringtone: text}
		case adminSessionPasskeyResponse:
			response := &SessionPasskeyResponse{}
			err := eachField(m, func(num protowire.Number, _ uint64, m []byte) error {
				if num == 1 {
					response.Passkey = m
				}
				return nil
			})
			if err != nil {
				return err
			}
			admin = response
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, fmt.Errorf("empty admin payload")
	}
	return admin, nil
}

func marshalChannel(channel Channel) []byte {
	var settings []byte
	settings = protowire.AppendTag(settings, 1, protowire.BytesType)
	settings = protowire.AppendString(settings, channel.Settings.Name)
	settings = protowire.AppendTag(settings, 2, protowire.BytesType)
	settings = protowire.AppendBytes(settings, channel.Settings.Psk)
	settings = appendBool(settings, 3, channel.Settings.UplinkEnabled)
	settings = appendBool(settings, 4, channel.Settings.DownlinkEnabled)

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(channel.Index))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(channel.Role))
	b = appendMessage(b, 3, settings)
	return b
}

func unmarshalChannel(b []byte) (Channel, error) {
	channel := Channel{}
	err := eachField(b, func(num protowire.Number, v uint64, m []byte) error {
		switch num {
		case 1:
			channel.Index = int(v)
		case 2:
			channel.Role = ChannelRole(v)
		case 3:
			return eachField(m, func(num protowire.Number, v uint64, m []byte) error {
				switch num {
				case 1:
					channel.Settings.Name = string(m)
				case 2:
					if 0 < len(m) {
						channel.Settings.Psk = m
					}
				case 3:
					channel.Settings.UplinkEnabled = v != 0
				case 4:
					channel.Settings.DownlinkEnabled = v != 0
				}
				return nil
			})
		}
		return nil
	})
	return channel, err
}

func marshalOwner(owner Owner) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, owner.LongName)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, owner.ShortName)
	b = appendBool(b, 3, owner.Licensed)
	return b
}

func unmarshalOwner(b []byte) (Owner, error) {
	owner := Owner{}
	err := eachField(b, func(num protowire.Number, v uint64, m []byte) error {
		switch num {
		case 1:
			owner.LongName = string(m)
		case 2:
			owner.ShortName = string(m)
		case 3:
			owner.Licensed = v != 0
		}
		return nil
	})
	return owner, err
}

func marshalConfig(variant uint64, payload []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, variant)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

func unmarshalConfig(b []byte) (variant uint64, payload []byte, err error) {
	err = eachField(b, func(num protowire.Number, v uint64, m []byte) error {
		switch num {
		case 1:
			variant = v
		case 2:
			if 0 < len(m) {
				payload = m
			}
		}
		return nil
	})
	return
}

func unmarshalText(b []byte) (string, error) {
	text := ""
	err := eachField(b, func(num protowire.Number, _ uint64, m []byte) error {
		if num == 1 {
			text = string(m)
		}
		return nil
	})
	return text, err
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendBytes(b, m)
	return b
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	if v {
		b = protowire.AppendVarint(b, 1)
	} else {
		b = protowire.AppendVarint(b, 0)
	}
	return b
}

// eachField walks the top-level fields of a protowire message.
// Varint fields are delivered via `v`, length-delimited fields via `m`.
// Unknown wire types are skipped.
func eachField(b []byte, callback func(num protowire.Number, v uint64, m []byte) error) error {
	for 0 < len(b) {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := callback(num, v, nil); err != nil {
				return err
			}
		case protowire.BytesType:
			m, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			if err := callback(num, 0, m); err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}
