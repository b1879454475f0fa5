package tradingview

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/psxlabs/psxgo/internal/common"
	"github.com/psxlabs/psxgo/internal/models"
)

// The chart socket speaks length-prefixed frames: "~m~<len>~m~<payload>",
// several of which may share one websocket message. Keepalive payloads look
// like "~h~<n>" and must be echoed.

// socketMessage is the JSON payload of one protocol frame.
type socketMessage struct {
	M string            `json:"m"`
	P []json.RawMessage `json:"p"`
}

// writeMessage sends one method frame.
func writeMessage(conn *websocket.Conn, method string, params []interface{}) error {
	payload, err := json.Marshal(map[string]interface{}{"m": method, "p": params})
	if err != nil {
		return err
	}
	return writeFrame(conn, string(payload))
}

// writeFrame wraps a payload in the length prefix and sends it.
func writeFrame(conn *websocket.Conn, payload string) error {
	frame := fmt.Sprintf("~m~%d~m~%s", len(payload), payload)
	return conn.WriteMessage(websocket.TextMessage, []byte(frame))
}

// splitFrames unpacks the payloads of a raw socket message.
func splitFrames(data string) []string {
	var frames []string
	for len(data) > 0 {
		if !strings.HasPrefix(data, "~m~") {
			frames = append(frames, data)
			break
		}
		rest := data[3:]
		sep := strings.Index(rest, "~m~")
		if sep < 0 {
			break
		}
		var length int
		if _, err := fmt.Sscanf(rest[:sep], "%d", &length); err != nil {
			break
		}
		body := rest[sep+3:]
		if length > len(body) {
			length = len(body)
		}
		frames = append(frames, body[:length])
		data = body[length:]
	}
	return frames
}

// seriesUpdate is the bar container inside timescale_update / du payloads,
// keyed by the series id chosen at create_series time.
type seriesUpdate struct {
	SDS struct {
		S []struct {
			V []float64 `json:"v"`
		} `json:"s"`
	} `json:"sds_1"`
}

// parseSeriesUpdate extracts bars from a timescale_update message. Each bar
// vector is [epoch, open, high, low, close, volume]; volume may be absent.
func parseSeriesUpdate(msg socketMessage) ([]models.Bar, error) {
	if len(msg.P) < 2 {
		return nil, nil
	}

	var update seriesUpdate
	if err := json.Unmarshal(msg.P[1], &update); err != nil {
		return nil, common.DataError(sourceName, "unparseable series update", err)
	}

	bars := make([]models.Bar, 0, len(update.SDS.S))
	for _, point := range update.SDS.S {
		if len(point.V) < 5 {
			continue
		}
		bar := models.Bar{
			Time:  time.Unix(int64(point.V[0]), 0).UTC(),
			Open:  point.V[1],
			High:  point.V[2],
			Low:   point.V[3],
			Close: point.V[4],
		}
		if len(point.V) > 5 {
			bar.Volume = int64(point.V[5])
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

const sessionChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// chartSession generates a chart session id, e.g. "cs_a1b2c3d4e5f6".
func chartSession() string {
	b := make([]byte, 12)
	for i := range b {
		b[i] = sessionChars[rand.Intn(len(sessionChars))]
	}
	return "cs_" + string(b)
}
