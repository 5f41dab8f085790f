package codec

import (
	"hue-bridge-client/internal/domain/model"
	"net/url"
)

// RegisterURL is the pairing endpoint, <base>api.
func RegisterURL(baseURL string) string {
	return baseURL + "api"
}

func userURL(baseURL string, cred model.Credential) string {
	return baseURL + "api/" + url.PathEscape(cred.Username)
}

func LightsURL(baseURL string, cred model.Credential) string {
	return userURL(baseURL, cred) + "/lights"
}

func LightURL(baseURL string, cred model.Credential, id model.LightID) string {
	return LightsURL(baseURL, cred) + "/" + url.PathEscape(string(id))
}

func LightStateURL(baseURL string, cred model.Credential, id model.LightID) string {
	return LightURL(baseURL, cred, id) + "/state"
}

func ConfigURL(baseURL string, cred model.Credential) string {
	return userURL(baseURL, cred) + "/config"
}
