// Package domain models environmental telemetry from remote sensor nodes and
// the indices derived from it.
//
// # Wire Contract
//
// Each node posts a flat JSON object per sample. Required keys: zoneId,
// nodeId, temp_c, hum_pct, mq2, mq135, flame1, flame2, dB, timestamp.
// Optional keys: sound_type, sound_confidence (defaults to 0), battery_pct.
// A missing required key is a validation failure, never silently defaulted.
//
// Requests are authenticated by an HMAC-SHA256 signature over the exact raw
// request body bytes, carried in a header alongside the device identity.
// Signing the raw bytes — rather than a re-serialization of the parsed
// object — is deliberate: serializers disagree on key order, whitespace, and
// number formatting, and any re-encoding silently invalidates signatures
// produced by a different library. Earlier firmware revisions used a compact
// envelope shape ({p, d, s} with short field aliases); that shape conflicts
// with the raw-bytes policy and is intentionally not supported.
//
// # Sensor Channels
//
// temp_c / hum_pct:
//
//	DHT-class combined sensor. Humidity is a percentage in [0,100].
//
// mq2 / mq135:
//
//	MQ-series gas sensors reporting raw ADC units. mq2 responds to smoke and
//	combustible gases, mq135 to general air contaminants. Both are normalized
//	against a 500-unit full scale for risk scoring.
//
// flame1 / flame2:
//
//	IR flame detectors, boolean. Either tripping marks the reading as a
//	confirmed-flame condition.
//
// dB / sound_type / sound_confidence:
//
//	Sound level in decibels plus an optional on-device classifier label and
//	its 0–100 confidence.
//
// # Derived Metrics
//
// Dew point uses the Magnus formula:
//
//	alpha = (17.27·T)/(237.7+T) + ln(RH/100)
//	dp    = 237.7·alpha/(17.27−alpha)
//
// Vapor pressure deficit uses the Tetens saturation curve:
//
//	es  = 0.611·exp(17.27·T/(T+237.3))  [kPa]
//	vpd = es·(1 − RH/100)
//
// Heat index is the NOAA Rothfusz regression, evaluated in Fahrenheit and
// converted back to Celsius. Below 80°F the regression is undefined and the
// air temperature is reported instead.
//
// The composite fire-risk index combines all channels as a weighted sum of
// [0,1]-normalized contributions, scaled to an integer in [0,100]:
//
//	temperature: rises linearly 15°C → 40°C          weight 0.25
//	humidity:    dryness, falls as RH rises 10→100%  weight 0.20
//	smoke (mq2): raw/500                             weight 0.25
//	gas (mq135): raw/500                             weight 0.10
//	flame:       1 if either detector trips          weight 0.15
//	sound:       confidence/100                      weight 0.10
//
// The weights are tuned policy, not physics; they live as named constants in
// derive.go so they can be retuned without touching the scoring code. All
// normalizations saturate — out-of-range raw inputs (negative gas values,
// sub-zero temperatures) never produce out-of-range contributions.
package domain
