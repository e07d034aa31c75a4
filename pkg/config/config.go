package config

import (
	goflag "flag"
	"time"

	flag "github.com/spf13/pflag"
)

type ServerConfig struct {
	Oneiro   Oneiro
	Library  Library
	Pool     Pool
	Session  Session
	Instance Instance
	Encoder  Encoder
	Webrtc   Webrtc
}

type Oneiro struct {
	Debug      bool
	Server     Server
	Monitoring Monitoring
	Turn       Turn
}

// Library points to the directory with game model manifests.
type Library struct {
	// the root folder of installed game manifests
	BasePath string
	// enable directory changes watch
	WatchMode bool
	// print some additional info during the scan
	Verbose bool
}

// Pool bounds the number of GPU-resident model instances.
type Pool struct {
	// the max number of simultaneously loaded instances
	Capacity int
	// the max number of queued acquires, 0 fails fast with a busy error
	QueueSize int
	// how long a queued acquire waits before giving up
	QueueWait time.Duration
	// how long a released instance stays warm before eviction
	IdleGrace time.Duration
}

type Session struct {
	// expected client heartbeat cadence
	HeartbeatInterval time.Duration
	// a session with no heartbeats for this long is garbage collected
	HeartbeatTimeout time.Duration
	// how often the garbage collector runs
	SweepInterval time.Duration
}

type Instance struct {
	// target stepping rate
	Fps int
	// a single step lasting longer than this stops the instance
	StepTimeout time.Duration
}

type Encoder struct {
	Video Video
}

type Video struct {
	Codec string
	H264  struct {
		Crf      uint8
		Preset   string
		Profile  string
		Tune     string
		LogLevel int
	}
}

// Turn holds the shared secret for TURN REST credentials.
type Turn struct {
	Secret     string
	TTL        time.Duration
	PublicHost string
	Port       int
}

type Server struct {
	Address string
	Https   bool
	Tls     struct {
		Address   string
		Domain    string
		HttpsKey  string
		HttpsCert string
	}
}

func (s *Server) GetAddr() string {
	if s.Https {
		return s.Tls.Address
	}
	return s.Address
}

type Monitoring struct {
	Port             int
	URLPrefix        string
	MetricEnabled    bool
	ProfilingEnabled bool
}

func (c *Monitoring) IsEnabled() bool { return c.MetricEnabled || c.ProfilingEnabled }

// allows custom config path
var configPath string

func NewServerConfig() (conf ServerConfig) {
	if err := LoadConfig(&conf, configPath); err != nil {
		panic(err)
	}
	return
}

func (c *ServerConfig) WithFlags() *ServerConfig {
	fs := flag.CommandLine
	fs.AddGoFlagSet(goflag.CommandLine)
	fs.BoolVar(&c.Oneiro.Debug, "debug", c.Oneiro.Debug, "Enable debug logging")
	fs.StringVar(&c.Oneiro.Server.Address, "address", c.Oneiro.Server.Address, "HTTP server address (host:port)")
	fs.IntVar(&c.Oneiro.Monitoring.Port, "monitoring.port", c.Oneiro.Monitoring.Port, "Monitoring server port")
	fs.StringVar(&c.Library.BasePath, "library", c.Library.BasePath, "Game manifest library path")
	fs.IntVar(&c.Pool.Capacity, "capacity", c.Pool.Capacity, "Max simultaneously loaded model instances")
	fs.StringVarP(&configPath, "conf", "c", configPath, "Set custom configuration file path")
	flag.Parse()
	return c
}
