package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/relaybot/core/telegram/netutil"
)

const (
	dialTimeout       = 5 * time.Second
	keepAlive         = 30 * time.Second
	tlsHandshake      = 5 * time.Second
	idleConnTimeout   = 30 * time.Second
	headerGrace       = 5 * time.Second
	baseClientTimeout = 30 * time.Second
	apiRetries        = 3
	apiRetryBackoff   = 2 * time.Second
)

// BuildHTTPClient returns the client Telebot uses for Bot API calls. Header
// and client timeouts are stretched by the long poll hold time so an idle
// getUpdates is not mistaken for a stalled connection.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	longPoll = max(longPoll, 0)
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshake,
		ResponseHeaderTimeout: longPoll + headerGrace,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: max(baseClientTimeout, longPoll+baseClientTimeout/2),
		Transport: &netutil.RetryTransport{
			Base:       transport,
			MaxRetries: apiRetries,
			Backoff:    apiRetryBackoff,
		},
	}
}
