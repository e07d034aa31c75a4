package main

import (
	"context"

	"github.com/oneirogames/oneiro/pkg/config"
	"github.com/oneirogames/oneiro/pkg/games"
	"github.com/oneirogames/oneiro/pkg/games/synth"
	"github.com/oneirogames/oneiro/pkg/logger"
	"github.com/oneirogames/oneiro/pkg/monitoring"
	"github.com/oneirogames/oneiro/pkg/network/webrtc"
	"github.com/oneirogames/oneiro/pkg/os"
	"github.com/oneirogames/oneiro/pkg/pool"
	"github.com/oneirogames/oneiro/pkg/server"
	"github.com/oneirogames/oneiro/pkg/session"
)

var Version = "?"

func main() {
	conf := config.NewServerConfig()
	conf.WithFlags()

	log := logger.NewConsole(conf.Oneiro.Debug, "o", false)
	log.Info().Msgf("version %s", Version)
	if log.GetLevel() < logger.InfoLevel {
		log.Debug().Msgf("config: %+v", conf)
	}

	registry := games.NewRegistry(log)
	registry.Register(synth.Engine, synth.New)

	library := games.NewLibrary(conf.Library, log)
	go library.Scan()
	defer library.Close()

	arbiter := pool.NewArbiter(conf.Pool, registry, log)
	defer arbiter.Close()

	factory, err := webrtc.NewApiFactory(conf.Webrtc, log, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("webrtc api init failed")
	}

	sessions := session.NewManager(conf, library, arbiter,
		session.NewPeerTransport(factory, log),
		session.NewVideoCodec(conf.Encoder, log),
		log)
	sessions.Run()
	defer sessions.Shutdown()

	httpSrv, err := server.New(conf, library, sessions, log).NewHTTPServer()
	if err != nil {
		log.Fatal().Err(err).Msg("http init failed")
	}
	httpSrv.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		if err := httpSrv.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("http shutdown errors")
		}
	}()

	if conf.Oneiro.Monitoring.IsEnabled() {
		mon, err := monitoring.New(conf.Oneiro.Monitoring, "o", log)
		if err != nil {
			log.Error().Err(err).Msg("monitoring init failed")
		} else {
			mon.Run()
			defer func() {
				if err := mon.Shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("monitoring shutdown errors")
				}
			}()
		}
	}

	<-os.ExpectTermination()
}
