package protocol

// Message-type nibbles carried in bits 4-7 of the first payload byte of an
// instrument packet. The assignments were reverse-engineered from Davis
// transmitter captures and are not documented by the vendor.
const (
	msgSupercapVoltage = 0x2
	msgUVIndex         = 0x4
	msgRainRate        = 0x5
	msgSolarRadiation  = 0x6
	msgSolarPower      = 0x7
	msgTemperature     = 0x8
	msgWindGust        = 0x9
	msgHumidity        = 0xA
	msgATK             = 0xC
	msgRainCount       = 0xE
	msgLeafSoil        = 0xF
)

// Sentinel raw values signifying "sensor not populated". A sentinel
// suppresses the corresponding observation; it never decodes to zero.
const (
	sentinel10Bit    = 0x3FF  // 10-bit fields (supercap, UV, solar, rain spacing)
	sentinelTempRaw  = 0xFFC  // 12-bit temperature field
	sentinelRainTips = 0x80   // rain tip counter
	sentinelCapLow   = 0x002  // supercapacitor "charging" placeholder
)

const (
	rawPacketLen   = 8
	rainCounterMod = 128 // tip counter domain after masking the wrap-variant bit

	// Transmitters retransmit every 2.5625s + channel offset; the receiver
	// reports microseconds since the previous reception on the channel.
	retransmitMicros = 2500000

	mphToMps       = 0.44704
	wattsPerCount  = 1.757936 // solar radiation, W/m^2 per raw count
	uvPerCount     = 0.02     // UV index = raw / 50
	defaultRFLevel = -125.0   // receiver squelch floor, dB
)

// Logical channel slots tracked by the link-quality statistics. Slot 0 is
// the console itself (barometer heartbeats), slots 1-8 are transmitter
// channels, slot 9 accumulates the receiver's self-reported quality
// percentage in machine mode.
const (
	NumChannels    = 10
	ConsoleChannel = 0
	QualityChannel = 9
)
