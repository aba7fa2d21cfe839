// Command simdevice emulates a sensor node: it generates synthetic readings,
// signs them with the device's shared secret, and posts them to a running
// telemetry service. Useful for local smoke testing and demos.
//
// Usage:
//
//	go run ./cmd/simdevice \
//	  -url http://localhost:8080 \
//	  -device node-01 -secret alpha \
//	  -zone north-ridge -node node-01 \
//	  -count 10 -interval 2s -scenario fire
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/auth"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	baseURL := flag.String("url", "http://localhost:8080", "telemetry service base URL")
	device := flag.String("device", "", "device id (must be in the service's DEVICE_SECRETS)")
	secret := flag.String("secret", "", "shared HMAC secret for the device")
	zone := flag.String("zone", "zone-1", "zone id to report")
	node := flag.String("node", "node-1", "node id to report")
	count := flag.Int("count", 1, "number of readings to send")
	interval := flag.Duration("interval", time.Second, "delay between readings")
	scenario := flag.String("scenario", "normal", "reading profile: normal, fire, or loud")
	dryRun := flag.Bool("dry-run", false, "print the signed request instead of sending it")
	flag.Parse()

	if *device == "" || *secret == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -device, -secret")
	}
	gen, ok := scenarios[*scenario]
	if !ok {
		return fmt.Errorf("unknown scenario %q (want normal, fire, or loud)", *scenario)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	for i := 0; i < *count; i++ {
		if i > 0 {
			time.Sleep(*interval)
		}

		r := gen(*zone, *node)
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal reading: %w", err)
		}
		sig := auth.Sign(*secret, body)

		if *dryRun {
			fmt.Printf("X-Device-Id: %s\nX-Signature: %s\n%s\n\n", *device, sig, body)
			continue
		}

		if err := post(client, *baseURL, *device, sig, body); err != nil {
			return err
		}
	}
	return nil
}

func post(client *http.Client, baseURL, device, sig string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/ingest", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Id", device)
	req.Header.Set("X-Signature", sig)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send reading: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	log.Printf("%s %s", resp.Status, bytes.TrimSpace(respBody))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service rejected reading: %s", resp.Status)
	}
	return nil
}

// scenarios maps a profile name to a reading generator. Values carry small
// jitter so repeated sends look like real sensor noise.
var scenarios = map[string]func(zone, node string) domain.Reading{
	"normal": func(zone, node string) domain.Reading {
		return baseReading(zone, node, 22+jitter(3), 55+jitter(10), 120+jitter(40), 90+jitter(30), 45+jitter(10))
	},
	"fire": func(zone, node string) domain.Reading {
		r := baseReading(zone, node, 38+jitter(2), 12+jitter(4), 470+jitter(30), 320+jitter(50), 65+jitter(10))
		r.Flame1 = true
		return r
	},
	"loud": func(zone, node string) domain.Reading {
		r := baseReading(zone, node, 24+jitter(3), 50+jitter(10), 130+jitter(40), 100+jitter(30), 105+jitter(5))
		r.SoundType = "chainsaw"
		r.SoundConfidence = 0.9
		return r
	},
}

func baseReading(zone, node string, temp, hum, mq2, mq135, db float64) domain.Reading {
	return domain.Reading{
		ZoneID:          zone,
		NodeID:          node,
		TempC:           round1(temp),
		HumPct:          round1(hum),
		MQ2:             round1(mq2),
		MQ135:           round1(mq135),
		SoundDB:         round1(db),
		SoundConfidence: 0,
		Timestamp:       time.Now().Unix(),
	}
}

func jitter(scale float64) float64 {
	return (rand.Float64()*2 - 1) * scale
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
