package middleware

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2/middleware/session"
)

const flashKey = "flash"

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flashes are one-time notices grouped by kind.
type Flashes map[string][]string

// AddFlash queues a notice for the next rendered page. The caller saves the session.
func AddFlash(sess *session.Session, kind, msg string) {
	flashes := readFlashes(sess)
	flashes[kind] = append(flashes[kind], msg)
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	sess.Set(flashKey, string(raw))
}

// PopFlashes returns and clears the queued notices. The caller saves the session.
func PopFlashes(sess *session.Session) Flashes {
	flashes := readFlashes(sess)
	sess.Delete(flashKey)
	return flashes
}

func readFlashes(sess *session.Session) Flashes {
	flashes := Flashes{}
	raw, ok := sess.Get(flashKey).(string)
	if !ok || raw == "" {
		return flashes
	}
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return Flashes{}
	}
	return flashes
}
