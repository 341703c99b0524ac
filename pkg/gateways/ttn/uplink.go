package ttn

import (
	"time"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/entities"
)

// Uplink envelope matching The Things Stack v3 wire format. The JSON tags
// are the protocol contract consumed by the network server's
// webhook/simulate API and must not change.

type ApplicationIDs struct {
	ApplicationID string `json:"application_id"`
}

type EndDeviceIDs struct {
	DeviceID       string         `json:"device_id"`
	ApplicationIDs ApplicationIDs `json:"application_ids"`
	DevEUI         string         `json:"dev_eui"`
}

type GatewayIDs struct {
	GatewayID string `json:"gateway_id"`
	EUI       string `json:"eui,omitempty"`
}

type RxMetadata struct {
	GatewayIDs  GatewayIDs `json:"gateway_ids"`
	RSSI        int        `json:"rssi"`
	ChannelRSSI int        `json:"channel_rssi"`
	SNR         float64    `json:"snr"`
	Timestamp   int64      `json:"timestamp"`
	Time        string     `json:"time"`
}

type LoRaDataRate struct {
	Bandwidth       uint32 `json:"bandwidth"`
	SpreadingFactor uint32 `json:"spreading_factor"`
}

type DataRate struct {
	LoRa LoRaDataRate `json:"lora"`
}

type UplinkSettings struct {
	DataRate  DataRate `json:"data_rate"`
	Frequency string   `json:"frequency"`
	Timestamp int64    `json:"timestamp"`
}

type Uplink struct {
	FPort          uint32                 `json:"f_port"`
	FCnt           uint32                 `json:"f_cnt"`
	FrmPayload     string                 `json:"frm_payload"`
	DecodedPayload entities.SensorReading `json:"decoded_payload"`
	RxMetadata     []RxMetadata           `json:"rx_metadata"`
	Settings       UplinkSettings         `json:"settings"`
	ReceivedAt     string                 `json:"received_at"`
}

type UplinkMessage struct {
	EndDeviceIDs  EndDeviceIDs `json:"end_device_ids"`
	ReceivedAt    string       `json:"received_at"`
	UplinkMessage Uplink       `json:"uplink_message"`
}

// UplinkOptions overrides the synthetic radio parameters of a formatted
// uplink. Zero-valued fields keep their default.
type UplinkOptions struct {
	FPort           uint32
	FCnt            uint32
	RSSI            int
	SNR             float64
	Frequency       string
	SpreadingFactor uint32
	Bandwidth       uint32
}

const (
	simulatedGatewayID  = "ttn-emulator-gateway"
	simulatedGatewayEUI = "AA555A0000000000"
)

func DefaultUplinkOptions() UplinkOptions {
	return UplinkOptions{
		FPort:           1,
		FCnt:            1,
		RSSI:            -60,
		SNR:             9.5,
		Frequency:       "868.1",
		SpreadingFactor: 7,
		Bandwidth:       125000,
	}
}

func mergeUplinkOptions(opts *UplinkOptions) UplinkOptions {
	options := DefaultUplinkOptions()
	if opts == nil {
		return options
	}
	if opts.FPort != 0 {
		options.FPort = opts.FPort
	}
	if opts.FCnt != 0 {
		options.FCnt = opts.FCnt
	}
	if opts.RSSI != 0 {
		options.RSSI = opts.RSSI
	}
	if opts.SNR != 0 {
		options.SNR = opts.SNR
	}
	if opts.Frequency != "" {
		options.Frequency = opts.Frequency
	}
	if opts.SpreadingFactor != 0 {
		options.SpreadingFactor = opts.SpreadingFactor
	}
	if opts.Bandwidth != 0 {
		options.Bandwidth = opts.Bandwidth
	}
	return options
}

// FormatUplink builds the envelope for one simulated transmission. The
// reading is embedded twice: encoded as frm_payload and verbatim as
// decoded_payload. One synthetic rx_metadata entry is stamped with the
// fixed simulated gateway identity and the current wall clock. A nil opts
// means all defaults.
func FormatUplink(deviceID, devEUI, appID string, reading entities.SensorReading, opts *UplinkOptions) UplinkMessage {
	options := mergeUplinkOptions(opts)

	now := time.Now().UTC()
	receivedAt := now.Format(time.RFC3339Nano)

	return UplinkMessage{
		EndDeviceIDs: EndDeviceIDs{
			DeviceID:       deviceID,
			ApplicationIDs: ApplicationIDs{ApplicationID: appID},
			DevEUI:         devEUI,
		},
		ReceivedAt: receivedAt,
		UplinkMessage: Uplink{
			FPort:          options.FPort,
			FCnt:           options.FCnt,
			FrmPayload:     EncodePayload(reading),
			DecodedPayload: reading,
			RxMetadata: []RxMetadata{
				{
					GatewayIDs:  GatewayIDs{GatewayID: simulatedGatewayID, EUI: simulatedGatewayEUI},
					RSSI:        options.RSSI,
					ChannelRSSI: options.RSSI,
					SNR:         options.SNR,
					Timestamp:   now.UnixMilli(),
					Time:        receivedAt,
				},
			},
			Settings: UplinkSettings{
				DataRate: DataRate{
					LoRa: LoRaDataRate{
						Bandwidth:       options.Bandwidth,
						SpreadingFactor: options.SpreadingFactor,
					},
				},
				Frequency: options.Frequency,
				Timestamp: now.UnixMilli(),
			},
			ReceivedAt: receivedAt,
		},
	}
}
