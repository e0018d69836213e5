package nostr

import (
	"errors"
	"net/url"
	"strings"
)

const connectionScheme = "nostr+walletconnect://"

// ConnectionInfo is the content of an NWC connection string.
type ConnectionInfo struct {
	WalletPubkey string
	Relay        string
	Secret       string
}

// ConnectionString formats nostr+walletconnect://{pubkey}?relay={relay}&secret={secret}
// with the relay URL query-escaped.
func ConnectionString(walletPubkey, relay, secret string) string {
	return connectionScheme + walletPubkey + "?relay=" + url.QueryEscape(relay) + "&secret=" + secret
}

// ParseConnectionString is the inverse of ConnectionString.
func ParseConnectionString(s string) (*ConnectionInfo, error) {
	if !strings.HasPrefix(s, connectionScheme) {
		return nil, errors.New("invalid NWC URI: must start with " + connectionScheme)
	}
	pubkey, rawQuery, _ := strings.Cut(strings.TrimPrefix(s, connectionScheme), "?")
	if len(pubkey) != 64 {
		return nil, errors.New("invalid wallet pubkey: must be 64 hex characters")
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, errors.New("invalid NWC URI query")
	}
	info := &ConnectionInfo{
		WalletPubkey: pubkey,
		Relay:        q.Get("relay"),
		Secret:       q.Get("secret"),
	}
	if info.Relay == "" {
		return nil, errors.New("NWC URI must include relay parameter")
	}
	if len(info.Secret) != 64 {
		return nil, errors.New("invalid secret: must be 64 hex characters")
	}
	return info, nil
}
