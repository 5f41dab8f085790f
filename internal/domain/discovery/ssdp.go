package discovery

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// MulticastAddr is the SSDP group and port.
	MulticastAddr = "239.255.255.250:1900"
	searchTarget  = "ssdp:all"
)

var (
	errMalformedReply = errors.New("malformed discovery reply")
	errNotBridge      = errors.New("reply is not from a bridge")
)

// SearchMessage builds the M-SEARCH datagram. mx is the maximum response
// delay, in seconds, that responders may wait before answering.
func SearchMessage(mx int) []byte {
	return []byte(fmt.Sprintf("M-SEARCH * HTTP/1.1\r\n"+
		"HOST: %s\r\n"+
		"MAN: \"ssdp:discover\"\r\n"+
		"MX: %d\r\n"+
		"ST: %s\r\n\r\n", MulticastAddr, mx, searchTarget))
}

// Reply is a parsed answer to the search datagram.
type Reply struct {
	Location string
	Address  string
	BridgeID string
	Server   string
}

// ParseReply parses one SSDP response. It fails on anything that is not a
// 200 response with a usable LOCATION header, and with errNotBridge on
// well-formed replies from other UPnP devices.
func ParseReply(payload []byte) (Reply, error) {
	lines := strings.Split(strings.ReplaceAll(string(payload), "\r\n", "\n"), "\n")
	status := strings.Fields(lines[0])
	if len(status) < 2 || !strings.HasPrefix(strings.ToUpper(status[0]), "HTTP/1.") || status[1] != "200" {
		return Reply{}, fmt.Errorf("%w: status line %q", errMalformedReply, lines[0])
	}

	var r Reply
	for _, line := range lines[1:] {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "location":
			r.Location = value
		case "hue-bridgeid":
			r.BridgeID = value
		case "server":
			r.Server = value
		}
	}
	if r.Location == "" {
		return Reply{}, fmt.Errorf("%w: missing LOCATION", errMalformedReply)
	}
	addr, err := hostOf(r.Location)
	if err != nil {
		return Reply{}, err
	}
	r.Address = addr

	if r.BridgeID == "" && !strings.Contains(r.Server, "IpBridge") {
		return Reply{}, errNotBridge
	}
	return r, nil
}

// hostOf extracts the bridge address from a location URL, dropping the
// default HTTP port so addresses compare equal to remote lookup results.
func hostOf(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errMalformedReply, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: location %q has no host", errMalformedReply, location)
	}
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != "80" {
		host += ":" + port
	}
	return host, nil
}
