// Package bridgetest provides an in-process bridge double for tests: an
// httptest server speaking the v1 light API and an in-memory datagram
// transport that answers SSDP searches.
package bridgetest

import (
	"encoding/json"
	"fmt"
	"hue-bridge-client/internal/domain/codec"
	"hue-bridge-client/internal/domain/model"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/amimof/huego"
)

// Request is one API call received by the double.
type Request struct {
	Method string
	Path   string
	Body   string
}

type Bridge struct {
	ID     string
	Name   string
	server *httptest.Server

	mu             sync.Mutex
	lights         map[string]*huego.Light
	users          map[string]bool
	buttonPressed  bool
	rejectedFields []string
	nextUser       int
	requests       []Request
}

// New starts a bridge double. Close it when done.
func New() *Bridge {
	b := &Bridge{
		ID:     "001788FFFE102201",
		Name:   "Philips hue",
		lights: make(map[string]*huego.Light),
		users:  make(map[string]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/description.xml", b.handleDescription)
	mux.HandleFunc("/api", b.handleAPI)
	mux.HandleFunc("/api/", b.handleAPI)
	b.server = httptest.NewServer(mux)
	return b
}

func (b *Bridge) Close() { b.server.Close() }

// URL is the bridge root, e.g. "http://127.0.0.1:43567".
func (b *Bridge) URL() string { return b.server.URL }

// Address is the host:port of the bridge.
func (b *Bridge) Address() string {
	u, _ := url.Parse(b.server.URL)
	return u.Host
}

func (b *Bridge) Descriptor() model.BridgeDescriptor {
	return model.BridgeDescriptor{Address: b.Address(), ID: b.ID}
}

func (b *Bridge) AddUser(username string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = true
}

// RevokeUser removes a whitelisted user.
func (b *Bridge) RevokeUser(username string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.users, username)
}

func (b *Bridge) AddLight(id string, l huego.Light) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if l.State == nil {
		l.State = &huego.State{}
	}
	b.lights[id] = &l
}

// Light returns a copy of the stored light.
func (b *Bridge) Light(id string) (huego.Light, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lights[id]
	if !ok {
		return huego.Light{}, false
	}
	cp := *l
	st := *l.State
	cp.State = &st
	return cp, true
}

func (b *Bridge) PressLinkButton() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buttonPressed = true
}

// RejectFields makes state writes answer "invalid value" for the given wire
// fields while still applying the others.
func (b *Bridge) RejectFields(fields ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejectedFields = fields
}

func (b *Bridge) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

func (b *Bridge) handleDescription(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8" ?>
<root xmlns="urn:schemas-upnp-org:device-1-0">
<specVersion>
<major>1</major>
<minor>0</minor>
</specVersion>
<URLBase>%s/</URLBase>
<device>
<deviceType>urn:schemas-upnp-org:device:Basic:1</deviceType>
<friendlyName>%s (%s)</friendlyName>
<manufacturer>Signify</manufacturer>
<modelDescription>Philips hue Personal Wireless Lighting</modelDescription>
<modelName>Philips hue bridge 2015</modelName>
<modelNumber>BSB002</modelNumber>
<serialNumber>001788102201</serialNumber>
<UDN>uuid:2f402f80-da50-11e1-9b23-001788102201</UDN>
</device>
</root>`, b.server.URL, b.Name, b.Address())
}

func (b *Bridge) handleAPI(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	b.mu.Lock()
	b.requests = append(b.requests, Request{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	b.mu.Unlock()

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, codec.TypeMethodNotAvailable, "/", "method, "+r.Method+", not available for resource, /")
			return
		}
		b.handleRegister(w, body)
		return
	}

	parts := strings.Split(path, "/")
	b.mu.Lock()
	authorized := b.users[parts[0]]
	b.mu.Unlock()
	if !authorized {
		writeError(w, codec.TypeUnauthorizedUser, "/", "unauthorized user")
		return
	}

	sub := parts[1:]
	switch {
	case len(sub) == 1 && sub[0] == "config":
		b.handleConfig(w)
	case len(sub) >= 1 && sub[0] == "lights":
		b.handleLights(w, r, sub[1:], body)
	default:
		writeError(w, codec.TypeResourceNotAvailable, "/"+strings.Join(sub, "/"), "resource, /"+strings.Join(sub, "/")+", not available")
	}
}

func (b *Bridge) handleRegister(w http.ResponseWriter, body []byte) {
	name, err := codec.DecodeRegistrationRequest(body)
	if err != nil {
		writeError(w, codec.TypeInvalidJSON, "", "body contains invalid json")
		return
	}
	if name == "" {
		writeError(w, codec.TypeMissingParameters, "/", "invalid/missing parameters in body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.buttonPressed {
		writeError(w, codec.TypeLinkButtonNotPressed, "", "link button not pressed")
		return
	}
	b.nextUser++
	username := fmt.Sprintf("user%04d", b.nextUser)
	b.users[username] = true
	writeJSON(w, []map[string]any{{"success": map[string]string{"username": username}}})
}

func (b *Bridge) handleConfig(w http.ResponseWriter) {
	writeJSON(w, map[string]string{
		"name":       b.Name,
		"bridgeid":   b.ID,
		"apiversion": "1.60.0",
		"swversion":  "1960074090",
		"mac":        "00:17:88:10:22:01",
		"modelid":    "BSB002",
	})
}

func (b *Bridge) handleLights(w http.ResponseWriter, r *http.Request, sub []string, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(sub) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, codec.TypeMethodNotAvailable, "/lights", "method, "+r.Method+", not available for resource, /lights")
			return
		}
		writeJSON(w, b.lights)
		return
	}

	id := sub[0]
	light, ok := b.lights[id]
	if !ok {
		writeError(w, codec.TypeResourceNotAvailable, "/lights/"+id, "resource, /lights/"+id+", not available")
		return
	}

	switch {
	case len(sub) == 1 && r.Method == http.MethodGet:
		writeJSON(w, light)
	case len(sub) == 2 && sub[1] == "state" && r.Method == http.MethodPut:
		b.applyState(w, id, light, body)
	default:
		writeError(w, codec.TypeMethodNotAvailable, r.URL.Path, "method, "+r.Method+", not available for resource")
	}
}

func (b *Bridge) applyState(w http.ResponseWriter, id string, light *huego.Light, body []byte) {
	update, err := codec.DecodeStateUpdate(body)
	if err != nil {
		writeError(w, codec.TypeInvalidJSON, "", "body contains invalid json")
		return
	}

	var results []map[string]any
	apply := func(field string, value any, set func()) {
		addr := fmt.Sprintf("/lights/%s/state/%s", id, field)
		if slices.Contains(b.rejectedFields, field) {
			results = append(results, map[string]any{"error": codec.APIError{
				Type:        codec.TypeInvalidValue,
				Address:     addr,
				Description: fmt.Sprintf("invalid value, %v, for parameter, %s", value, field),
			}})
			return
		}
		set()
		results = append(results, map[string]any{"success": map[string]any{addr: value}})
	}

	st := light.State
	if v, ok := update.On.Get(); ok {
		apply("on", v, func() { st.On = v })
	}
	if v, ok := update.Brightness.Get(); ok {
		apply("bri", v, func() { st.Bri = v })
	}
	if v, ok := update.Hue.Get(); ok {
		apply("hue", v, func() { st.Hue = v })
	}
	if v, ok := update.Saturation.Get(); ok {
		apply("sat", v, func() { st.Sat = v })
	}
	if v, ok := update.ColorTemperature.Get(); ok {
		apply("ct", v, func() { st.Ct = v })
	}
	if v, ok := update.TransitionTime.Get(); ok {
		apply("transitiontime", v, func() { st.TransitionTime = v })
	}
	if v, ok := update.Alert.Get(); ok {
		apply("alert", v, func() { st.Alert = v })
	}
	if v, ok := update.Effect.Get(); ok {
		apply("effect", v, func() { st.Effect = v })
	}
	if len(results) == 0 {
		writeError(w, codec.TypeMissingParameters, "/lights/"+id+"/state", "invalid/missing parameters in body")
		return
	}
	writeJSON(w, results)
}

func writeError(w http.ResponseWriter, typ int, address, description string) {
	writeJSON(w, []map[string]any{{"error": codec.APIError{Type: typ, Address: address, Description: description}}})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
