package server

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/oneirogames/oneiro/pkg/api"
)

// turnCredentials mints short-lived TURN credentials in the REST API
// scheme (draft-uberti-behave-turn-rest): the username is the expiry
// unix time, the password an HMAC-SHA1 of it under the shared secret.
// Without a configured secret the client gets empty relay lists and
// falls back to direct connectivity.
func (s *Server) turnCredentials(w http.ResponseWriter, _ *http.Request) {
	turn := s.conf.Oneiro.Turn
	if turn.Secret == "" {
		s.writeJSON(w, http.StatusOK, api.TurnResponse{TurnUrls: []string{}, StunUrls: []string{}})
		return
	}

	ttl := turn.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	username, credential := turnRestCredentials(turn.Secret, time.Now().Add(ttl))

	host := fmt.Sprintf("%s:%d", turn.PublicHost, turn.Port)
	s.writeJSON(w, http.StatusOK, api.TurnResponse{
		Username:   username,
		Credential: credential,
		TTL:        int(ttl.Seconds()),
		TurnUrls: []string{
			"turn:" + host + "?transport=udp",
			"turn:" + host + "?transport=tcp",
		},
		StunUrls: []string{"stun:" + host},
	})
}

func turnRestCredentials(secret string, expiry time.Time) (username, credential string) {
	username = strconv.FormatInt(expiry.Unix(), 10)
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(username))
	credential = base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return
}
