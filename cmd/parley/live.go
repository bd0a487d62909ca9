package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vasara-ai/parley/pkg/core/types"
	parley "github.com/vasara-ai/parley/sdk"
)

var (
	liveMicDevice  int
	liveMicCmd     string
	liveFFplayPath string
	liveVolume     int
	liveMeter      bool
)

var liveCmd = &cobra.Command{
	Use:   "live <agent>",
	Short: "Talk to an agent over a realtime voice session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLive(args[0])
	},
}

func init() {
	liveCmd.Flags().IntVar(&liveMicDevice, "mic-device", 0, "capture device index (macOS avfoundation)")
	liveCmd.Flags().StringVar(&liveMicCmd, "mic-cmd", "", "override the mic capture command (runs via /bin/sh -lc)")
	liveCmd.Flags().StringVar(&liveFFplayPath, "ffplay-path", "ffplay", "path to the ffplay executable")
	liveCmd.Flags().IntVar(&liveVolume, "volume", 80, "playback volume, 0 to 100")
	liveCmd.Flags().BoolVar(&liveMeter, "meter", false, "show a mic level meter on stderr")
}

func runLive(agent string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := newSDKClient()
	mic := newFFmpegMicrophone(liveMicDevice, liveMicCmd)
	sink := newFFplaySink(liveFFplayPath, liveVolume)
	defer sink.Close()

	cfg := parley.LiveSessionConfig{
		Microphone: mic,
		Sink:       sink,
		OnMessage: func(sender types.Sender, text string) {
			if liveMeter {
				fmt.Fprint(os.Stderr, "\r\033[K")
			}
			switch sender {
			case types.SenderUser:
				fmt.Printf("you> %s\n", text)
			default:
				fmt.Printf("agent> %s\n", text)
			}
		},
	}
	if liveMeter {
		cfg.OnLevel = newLevelMeter(os.Stderr)
	}

	ctrl := client.Live.Controller(agent, cfg)
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("live with %s; press Ctrl-C to hang up\n", agent)

	<-ctx.Done()
	ctrl.Stop()
	fmt.Println("\nsession ended")
	return nil
}

// newLevelMeter renders a throttled RMS bar. Called from the capture loop
// only, so it needs no locking.
func newLevelMeter(out *os.File) func(float64) {
	const width = 30
	var last time.Time
	return func(rms float64) {
		now := time.Now()
		if now.Sub(last) < 100*time.Millisecond {
			return
		}
		last = now
		filled := int(rms * width * 3)
		if filled > width {
			filled = width
		}
		fmt.Fprintf(out, "\rmic [%-*s]", width, strings.Repeat("#", filled))
	}
}
