package protocol

// per-section device config. The section payload bytes are opaque to the
// sync layer; only the variant tag is interpreted.

type ConfigVariant uint8

const (
	ConfigVariantUnset     ConfigVariant = 0
	ConfigVariantDevice    ConfigVariant = 1
	ConfigVariantPosition  ConfigVariant = 2
	ConfigVariantPower     ConfigVariant = 3
	ConfigVariantNetwork   ConfigVariant = 4
	ConfigVariantDisplay   ConfigVariant = 5
	ConfigVariantLoRa      ConfigVariant = 6
	ConfigVariantBluetooth ConfigVariant = 7
)

func (self ConfigVariant) String() string {
	switch self {
	case ConfigVariantDevice:
		return "device"
	case ConfigVariantPosition:
		return "position"
	case ConfigVariantPower:
		return "power"
	case ConfigVariantNetwork:
		return "network"
	case ConfigVariantDisplay:
		return "display"
	case ConfigVariantLoRa:
		return "lora"
	case ConfigVariantBluetooth:
		return "bluetooth"
	default:
		return "unset"
	}
}

type Config struct {
	Variant ConfigVariant
	Payload []byte
}

type ModuleVariant uint8

const (
	ModuleVariantUnset                ModuleVariant = 0
	ModuleVariantMqtt                 ModuleVariant = 1
	ModuleVariantSerial               ModuleVariant = 2
	ModuleVariantExternalNotification ModuleVariant = 3
	ModuleVariantStoreForward         ModuleVariant = 4
	ModuleVariantRangeTest            ModuleVariant = 5
	ModuleVariantTelemetry            ModuleVariant = 6
	ModuleVariantCannedMessage        ModuleVariant = 7
)

func (self ModuleVariant) String() string {
	switch self {
	case ModuleVariantMqtt:
		return "mqtt"
	case ModuleVariantSerial:
		return "serial"
	case ModuleVariantExternalNotification:
		return "external_notification"
	case ModuleVariantStoreForward:
		return "store_forward"
	case ModuleVariantRangeTest:
		return "range_test"
	case ModuleVariantTelemetry:
		return "telemetry"
	case ModuleVariantCannedMessage:
		return "canned_message"
	default:
		return "unset"
	}
}

type ModuleConfig struct {
	Variant ModuleVariant
	Payload []byte
}

// Owner is the user-facing identity of a node.
type Owner struct {
	LongName  string
	ShortName string
	Licensed  bool
}
