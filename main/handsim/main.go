package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jd3nn1s/handsim"
	"github.com/jd3nn1s/handsim/forwarder"
	"github.com/jd3nn1s/handsim/mjremote"
	"github.com/jd3nn1s/handsim/sim"
	"github.com/jd3nn1s/handsim/status"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	modelFile   string
	remoteAddr  string
	testMode    bool
	maxFrames   uint64
	statusAddr  string
	printFrames bool
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "handsim",
	Short: "Relay a VR hand controller into a simulated robot hand",
	Long: `handsim reads the controller pose and trigger from a MuJoCo remote
device, drives the mocap body and finger actuators of the simulated hand,
steps the simulation and sends the resulting joint configuration back to
the device for rendering.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runHandsim,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Ask the remote device to save a PNG snapshot",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&remoteAddr, "remote", handsim.DefaultRemoteAddr, "address of the remote device")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", log.InfoLevel.String(), "log level")
	rootCmd.Flags().StringVar(&modelFile, "model", "", "YAML model file, the MPL hand if empty")
	rootCmd.Flags().BoolVar(&testMode, "testmode", false, "generate test data instead of connecting to the remote")
	rootCmd.Flags().Uint64Var(&maxFrames, "frames", 0, "stop after this many frames, 0 runs until interrupted")
	rootCmd.Flags().StringVar(&statusAddr, "status-addr", "", "serve the HTTP status API on this address")
	rootCmd.Flags().BoolVar(&printFrames, "print-frames", false, "print frames to stdout")
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the configuration file, if any, and applies the flags
// set on the command line over it.
func loadConfig(cmd *cobra.Command) (handsim.Config, error) {
	config := handsim.DefaultConfig()
	if configFile != "" {
		var err error
		if config, err = handsim.LoadConfig(configFile); err != nil {
			return config, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("remote") {
		config.RemoteAddr = remoteAddr
	}
	if flags.Changed("log-level") {
		config.LogLevel = logLevel
	}
	if flags.Changed("model") {
		config.Model = modelFile
	}
	if flags.Changed("testmode") {
		config.TestMode = testMode
	}
	if flags.Changed("frames") {
		config.MaxFrames = maxFrames
	}
	if flags.Changed("status-addr") {
		config.StatusAddr = statusAddr
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	level, _ := log.ParseLevel(config.LogLevel)
	log.SetLevel(level)
	return config, nil
}

func loadModel(fileName string) (*sim.Model, error) {
	if fileName == "" {
		return sim.DefaultModel(), nil
	}
	return sim.Load(fileName)
}

func runHandsim(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	model, err := loadModel(config.Model)
	if err != nil {
		return err
	}
	log.WithField("model", model.Name).
		WithField("nq", model.NQ()).
		WithField("nu", model.NU()).
		Info("loaded model")

	var remote handsim.Remote
	if config.TestMode {
		remote = handsim.NewTestRemote()
	} else {
		r, err := handsim.ConnectRemote(config)
		if err != nil {
			return err
		}
		remote = r
	}
	defer remote.Close()

	hs, err := handsim.New(config, sim.NewKinematic(model), remote)
	if err != nil {
		return err
	}
	hs.Out = cmd.OutOrStdout()

	if config.UDP != nil {
		fwd, err := forwarder.NewUDPForwarder(*config.UDP)
		if err != nil {
			return errors.Wrap(err, "unable to load UDP forwarder")
		}
		defer fwd.Close()
		go func() {
			_ = fwd.Start(ctx)
		}()
		hs.AddForwarder(fwd)
	}
	if config.CAN != nil {
		fwd, err := handsim.NewCANForwarder(*config.CAN)
		if err != nil {
			return errors.Wrap(err, "unable to load CAN forwarder")
		}
		go func() {
			_ = fwd.Start(ctx)
		}()
		hs.AddForwarder(fwd)
	}
	if config.StatusAddr != "" {
		srv := status.NewServer()
		go func() {
			if err := srv.Run(config.StatusAddr); err != nil {
				log.WithField("err", err).Error("status server stopped")
			}
		}()
		hs.AddForwarder(srv)
	}
	if printFrames {
		hs.AddForwarder(&framePrinter{out: cmd.OutOrStdout()})
	}

	err = hs.Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("interrupted")
		return nil
	}
	return err
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := mjremote.Connect(config.RemoteAddr)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.SaveSnapshot()
}

type framePrinter struct {
	out io.Writer
}

func (p *framePrinter) Forward(newFrame *handsim.Frame, prevFrame *handsim.Frame) error {
	_, err := fmt.Fprintf(p.out, "%d grip=%.3f pos=%v quat=%v\n",
		newFrame.Number,
		newFrame.Sample.Grip,
		newFrame.Sample.Pose.Pos,
		newFrame.Sample.Pose.Quat)
	return err
}
