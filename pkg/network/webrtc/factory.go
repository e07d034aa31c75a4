package webrtc

import (
	"fmt"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/network/socket"
	"github.com/pion/interceptor"
	pion "github.com/pion/webrtc/v4"
)

type ApiFactory struct {
	api  *pion.API
	conf pion.Configuration
	log  *logger.Logger
}

type ModApiFun func(m *pion.MediaEngine, i *interceptor.Registry, s *pion.SettingEngine)

func NewApiFactory(conf config.Webrtc, log *logger.Logger, mod ModApiFun) (*ApiFactory, error) {
	m := &pion.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	i := &interceptor.Registry{}
	if !conf.DisableDefaultInterceptors {
		if err := pion.RegisterDefaultInterceptors(m, i); err != nil {
			return nil, err
		}
	}
	customLogger := logger.NewPionLogger(log, conf.LogLevel)
	s := pion.SettingEngine{LoggerFactory: customLogger}
	if conf.HasPortRange() {
		if err := s.SetEphemeralUDPPortRange(conf.IcePorts.Min, conf.IcePorts.Max); err != nil {
			return nil, err
		}
	}
	if conf.HasSinglePort() {
		udp, err := socket.NewUdpMux(conf.SinglePort)
		if err != nil {
			return nil, err
		}
		s.SetICEUDPMux(pion.NewICEUDPMux(customLogger, udp))
		log.Info().Msgf("The single port mode is active for %s", udp.LocalAddr())
	}
	if conf.HasIceIpMap() {
		s.SetNAT1To1IPs([]string{conf.IceIpMap}, pion.ICECandidateTypeHost)
		log.Info().Msgf("The NAT mapping is active for %v", conf.IceIpMap)
	}

	if mod != nil {
		mod(m, i, &s)
	}

	c := pion.Configuration{ICEServers: []pion.ICEServer{}}
	for _, server := range conf.IceServers {
		c.ICEServers = append(c.ICEServers, pion.ICEServer{
			URLs:       []string{server.Urls},
			Username:   server.Username,
			Credential: server.Credential,
		})
	}

	return &ApiFactory{
		api:  pion.NewAPI(pion.WithMediaEngine(m), pion.WithInterceptorRegistry(i), pion.WithSettingEngine(s)),
		conf: c,
		log:  log,
	}, nil
}

func (a *ApiFactory) NewPeer() (*pion.PeerConnection, error) {
	if a.api == nil {
		return nil, fmt.Errorf("webrtc api is not initialized")
	}
	return a.api.NewPeerConnection(a.conf)
}
