package api

import (
	"github.com/pion/webrtc/v3"

	"github.com/arnab9957/CodeFuse/internal/config"
)

// WebRTCConfig is served to voice clients so they can build their peer
// connections; the server itself never terminates media.
func WebRTCConfig(cfg *config.Config) webrtc.Configuration {
	stunServers := []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
	}
	if cfg.STUNServers != "" {
		stunServers = []string{cfg.STUNServers}
	}

	var iceServers []webrtc.ICEServer
	for _, stun := range stunServers {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs: []string{stun},
		})
	}

	if cfg.TURNURL != "" {
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       []string{cfg.TURNURL},
			Username:   cfg.TURNUser,
			Credential: cfg.TURNPass,
		})
	}

	return webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: webrtc.ICETransportPolicyAll,
		BundlePolicy:       webrtc.BundlePolicyMaxBundle,
		RTCPMuxPolicy:      webrtc.RTCPMuxPolicyRequire,
	}
}
