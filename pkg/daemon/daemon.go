// Package daemon runs the operating controller against a device and exposes
// a read-only inspection API over a unix socket.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/osctools/dcocal/pkg/config"
	"github.com/osctools/dcocal/pkg/dco"
	"github.com/osctools/dcocal/pkg/events"
	"github.com/osctools/dcocal/pkg/hw/sim"
	"github.com/osctools/dcocal/pkg/store"
)

var (
	conf config.Config
	ctrl *Controller
	hub  *events.Hub
)

// Options select the daemon's paths and config overrides from the CLI.
type Options struct {
	ConfigPath string
	SocketPath string

	// CLI overrides; applied on top of the config file when set.
	ForceOverwrite bool
	VolatileOnly   bool
	Diagnostics    bool
}

func setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/state", getState)
	router.GET("/results", getResults)
	router.GET("/targets", getTargets)
	router.GET("/history", getHistory)
	router.GET("/config", getConfig)
	router.GET("/version", getVersion)
	router.GET("/events", getEvents)

	return router
}

// Run starts the daemon in the foreground: simulated device, controller
// and HTTP surface. It returns after SIGINT/SIGTERM.
func Run(opts Options) error {
	if err := dco.CheckTargets(); err != nil {
		return err
	}
	if err := store.CheckLayout(); err != nil {
		return err
	}

	fileConf, err := config.NewFile(opts.ConfigPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	conf = fileConf
	if opts.ForceOverwrite {
		conf.SetForceOverwrite(true)
	}
	if opts.VolatileOnly {
		conf.SetVolatileOnly(true)
	}
	if opts.Diagnostics {
		conf.SetDiagnostics(true)
	}
	logrus.WithFields(fileConf.LogrusFields()).Info("config loaded")

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := conf.Load(); err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			logrus.Info("config reloaded")
		}
	}()

	hub = events.NewHub()

	// The simulated device is the only backend in-tree; it stands in for
	// the capture timer, the information flash and the board I/O.
	device := sim.New(sim.Options{
		Interval:  200 * time.Microsecond,
		DelayUnit: 10 * time.Millisecond,
	})
	device.Start()
	defer device.Stop()

	ctrl = NewController(device, device, device, conf, hub)

	srv := &http.Server{Handler: setupRoutes()}

	l, err := net.Listen("unix", opts.SocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	done := make(chan struct{})
	go func() {
		logrus.Debug("controller starting")
		ctrl.Run()
		close(done)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal %q: shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	cancel()

	// The controller only leaves RUN/FATAL through its stop hook.
	ctrl.Stop()
	<-done

	return nil
}
