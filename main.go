package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/asdine/storm"
	"github.com/caarlos0/env"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/CodedInternet/gorig/rig"
	"github.com/CodedInternet/gorig/rig/hardware"
	"github.com/CodedInternet/gorig/transport"
)

const (
	CONTROL_TASK = "contLoop"
)

type EnvConfig struct {
	JWT_ISSUER string `env:"RIG_DEVICE_UUID" envDefault:"DEV"`
	JWT_SECRET string `env:"JWT_SECRET" envDefault:"xWumOlRfhu+LBi2F2e1yF4FiaopQ5mr8klL4fpILnlI="`
	DEBUG      bool   `env:"DEBUG" envDefault:"0"`
	SRCDIR     string `env:"SRCDIR" envDefault:"."`
	DATADIR    string `env:"DATADIR" envDefault:"./tmp"`

	DB        *storm.DB
	Bench     *rig.Bench
	Transport *transport.Transport
	Loop      *rig.Loop
	Scheduler *rig.Scheduler
	Conductor *transport.Conductor
	Simulated bool
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	env.Parse(ENV)

	if _, err := os.Stat(ENV.DATADIR); os.IsNotExist(err) {
		os.Mkdir(ENV.DATADIR, 0755)
	}

	db, err := openDb(filepath.Join(ENV.DATADIR, "live.db"))
	if err != nil {
		panic(err)
	}
	ENV.DB = db
}

func main() {
	defer func() {
		// the only path that terminates the process on error: an
		// unexpected failure escaping the run loop
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Fatal("unexpected failure, shutting down")
		}
	}()

	simulated := flag.Bool("sim", false, "Run the rig with a simulated sensor board")
	httpAddr := flag.String("http", "0.0.0.0:8080", "Specify the ip:port for the API to listen on")
	configPath := flag.String("config", "", "Path to the rig yaml config")
	flag.Parse()

	if ENV.DEBUG {
		logrus.SetLevel(logrus.DebugLevel)
	}
	ENV.Simulated = *simulated

	defer ENV.DB.Close() // close database when finished

	config := loadConfig(*configPath)

	//---
	// Assemble the rig
	//---
	bench := rig.NewBench()
	tp := transport.NewTransport(bench)
	tp.OnRunEnd = func(s rig.RunSummary) { saveRun(ENV.DB, s) }

	conductor := new(transport.Conductor)
	tp.OnTelemetry = conductor.Broadcast

	var source rig.ValueSource
	var board *hardware.SensorBoard
	switch config.Mode {
	case rig.ModeFollower:
		board = buildSensorBoard(config)
		source = rig.NewSensorFollower(board)
	default:
		source = rig.NewTrajectory(bench)
	}

	loop := rig.NewLoop(bench, source, tp, config.Keepalive(), config.PeriodMS)
	if board != nil {
		loop.AttachSensor(board)
		loop.AttachIndicator(board)
	}

	scheduler := rig.NewScheduler()
	scheduler.AddTask(CONTROL_TASK, time.Duration(config.PeriodMS)*time.Millisecond, loop.Tick)

	ENV.Bench = bench
	ENV.Transport = tp
	ENV.Loop = loop
	ENV.Scheduler = scheduler
	ENV.Conductor = conductor

	//---
	// Frame transport
	//---
	server, err := transport.NewTCPServer(fmt.Sprintf(":%d", config.Port), tp)
	if err != nil {
		panic(fmt.Sprintf("Unable to listen for rig clients: %v", err))
	}
	logrus.WithField("addr", server.Addr()).Info("listening for rig clients")

	scheduler.Start()

	//---
	// Create a local shell
	//---
	shell := buildShell(tp)
	go shell.Start()

	//---
	// Build the API routes
	//---
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Recoverer) // make sure this is last

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", Login)

		r.Route("/", func(r chi.Router) {
			// Seek, verify and validate JWT tokens
			r.Use(ValidateJWT)

			r.Get("/status", Status)
			r.Get("/runs", Runs)
			r.Get("/refresh_token", JWTRefresh)
		})
	})

	r.Route("/ws", func(r chi.Router) {
		if !ENV.DEBUG {
			r.Use(ValidateJWT)
		} else {
			fmt.Println("Running in debug mode. Authentication disabled.")
		}

		r.Get("/telemetry", conductor.Handler)
	})

	httpErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", *httpAddr).Info("API listening")
		httpErr <- http.ListenAndServe(*httpAddr, r)
	}()

	//---
	// Run until told otherwise
	//---
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-httpErr:
		scheduler.Stop()
		server.Close()
		logrus.WithError(err).Fatal("API server failed")
	case s := <-sig:
		logrus.WithField("signal", s).Info("shutting down")
	}

	// stop firing ticks before tearing the transport down; no tick runs
	// past this point
	scheduler.Stop()
	server.Close()
}

func loadConfig(path string) (config rig.RigConfig) {
	if path == "" {
		path = filepath.Join(ENV.SRCDIR, "rig_config.yaml")
	}

	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("Unable to read yaml file: %v", err))
	}

	if err = yaml.Unmarshal(yamlFile, &config); err != nil {
		panic(fmt.Sprintf("Unable to unmarshal yaml: %v", err))
	}

	config.ApplyDefaults()
	if err = config.Validate(); err != nil {
		panic(fmt.Sprintf("Bad rig config: %v", err))
	}

	return
}

func buildSensorBoard(config rig.RigConfig) *hardware.SensorBoard {
	if !ENV.Simulated {
		// direct GPIO/ADC drivers only exist in the firmware build;
		// the host binary runs the follower against the simulator
		panic("follower mode on the host requires -sim")
	}

	channels := make([]hardware.Channel, len(config.Channels))
	for i, cal := range config.Channels {
		channels[i] = hardware.Channel{
			Cal:     cal,
			SelectA: i%2 == 0,
			SelectB: i%2 != 0,
		}
	}

	return hardware.NewSensorBoard(
		hardware.NewSimADC(0.02),
		hardware.NopPin{},
		hardware.NopPin{},
		hardware.NopPin{},
		channels,
	)
}

func buildShell(tp *transport.Transport) *ishell.Shell {
	shell := ishell.New()
	shell.Println("Rig development shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "createsuperuser",
		Help: "createsuperuser <email> <password>",
		Func: func(c *ishell.Context) {
			c.ShowPrompt(false)
			defer c.ShowPrompt(true) // yes, revert when done.

			var email string
			if len(c.Args) >= 1 {
				email = c.Args[0]
			} else {
				c.Print("Email: ")
				email = c.ReadLine()
			}

			var password string
			if len(c.Args) >= 2 {
				password = c.Args[1]
			} else {
				c.Print("Password: ")
				password = c.ReadPassword()
			}

			user := &User{
				Email: email,
				Name:  email,
				Admin: true,
			}
			user.SetPassword([]byte(password))
			if err := ENV.DB.Save(user); err != nil {
				panic(err)
			}

			c.Println("Superuser created")
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "Reads the current state of the bench",
		Func: func(c *ishell.Context) {
			bench, descriptor, output := ENV.Bench.Snapshot()
			c.Printf("time: %dms running: %v output: %f\n", bench.Time, bench.Running, output)
			c.Printf("trajectory: %d..%dms %f -> %f\n",
				descriptor.StartTime, descriptor.EndTime,
				descriptor.StartValue, descriptor.EndValue)
		},
	})

	// commands go through the inbound queue like any other client so the
	// tick sees them in order
	shell.AddCmd(&ishell.Cmd{
		Name: "start",
		Help: "Start the experiment",
		Func: func(c *ishell.Context) {
			tp.Inbound().Push(transport.NewExperimentFrame(true))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "Stop the experiment",
		Func: func(c *ishell.Context) {
			tp.Inbound().Push(transport.NewExperimentFrame(false))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "traj",
		Help: "traj <startMS> <endMS> <startValue> <endValue>",
		Func: func(c *ishell.Context) {
			d, err := parseTrajectoryArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}

			c.Printf("Ramping %f -> %f over %d..%dms\n",
				d.StartValue, d.EndValue, d.StartTime, d.EndTime)
			tp.Inbound().Push(transport.NewTrajectoryFrame(d))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "reset",
		Help: "Reset the bench and drop the client",
		Func: func(c *ishell.Context) {
			tp.Reset()
			c.Println("Bench reset")
		},
	})

	return shell
}

// parseTrajectoryArgs turns the shell arguments into a validated descriptor.
// A parse failure on any argument is an error; nothing is installed.
func parseTrajectoryArgs(args []string) (d rig.TrajectoryDescriptor, err error) {
	if len(args) != 4 {
		return d, fmt.Errorf("Incorrect number of arguments. Usage: traj <startMS> <endMS> <startValue> <endValue>")
	}

	start, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return d, fmt.Errorf("bad startMS %q: %v", args[0], err)
	}
	end, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return d, fmt.Errorf("bad endMS %q: %v", args[1], err)
	}
	startValue, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return d, fmt.Errorf("bad startValue %q: %v", args[2], err)
	}
	endValue, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return d, fmt.Errorf("bad endValue %q: %v", args[3], err)
	}

	d = rig.TrajectoryDescriptor{
		StartTime:  uint32(start),
		EndTime:    uint32(end),
		StartValue: startValue,
		EndValue:   endValue,
	}
	return d, d.Validate()
}
