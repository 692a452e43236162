// Command accelinfo acquires a graphics configuration for a display and
// prints what the accelerated pipeline can do on it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gogpu/accel"
	"github.com/gogpu/accel/config"
	"github.com/gogpu/accel/gfxconfig"
	"github.com/gogpu/accel/native"
	"github.com/gogpu/accel/surface"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "TOML options file (default $"+config.EnvVar+")")
		display  = flag.Int("display", -1, "display id (overrides the options file)")
		pixfmt   = flag.Int("pixfmt", -1, "pixel format (overrides the options file)")
		verbose  = flag.Bool("v", false, "log pipeline decisions")
		headless = flag.Bool("headless", true, "use a software device")
		watch    = flag.Bool("watch", false, "print again whenever the options file changes")
	)
	flag.Parse()

	override := func(o config.Options) config.Options {
		if *display >= 0 {
			o.Display.ID = uint32(*display) //nolint:gosec // non-negative
		}
		if *pixfmt >= 0 {
			o.Display.PixelFormat = *pixfmt
		}
		return o
	}

	opts, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	opts = override(opts)

	level, _ := opts.Level()
	if *verbose {
		level = slog.LevelDebug
	}
	accel.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(os.Stdout, opts, *headless); err != nil {
		log.Printf("accelinfo: %v", err)
		os.Exit(1)
	}

	if !*watch {
		return
	}
	path := *cfgPath
	if path == "" {
		path = os.Getenv(config.EnvVar)
	}
	if path == "" {
		log.Fatal("accelinfo: -watch needs -config or $" + config.EnvVar)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := watchAndReport(ctx, os.Stdout, path, *headless, override); err != nil {
		log.Fatal(err)
	}
}

// watchAndReport prints the report again each time the options file at
// path changes, until ctx is done. Reloads that fail are logged and
// skipped.
func watchAndReport(ctx context.Context, w io.Writer, path string, headless bool, override func(config.Options) config.Options) error {
	return config.Watch(ctx, path, func(opts config.Options, err error) {
		if err != nil {
			accel.Logger().Warn("accelinfo: reload failed", "path", path, "err", err)
			return
		}
		fmt.Fprintf(w, "reloaded %s\n", path)
		if err := run(w, override(opts), headless); err != nil {
			log.Printf("accelinfo: %v", err)
		}
	})
}

func run(w io.Writer, opts config.Options, headless bool) error {
	var provider native.HeadlessProvider
	backend := native.NewProviderBackend(native.NullProvider{})
	if headless {
		backend = native.NewProviderBackend(&provider)
	}

	env := gfxconfig.NewEnvironment(backend, opts.EnvironmentOptions()...)
	defer env.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := env.GetConfig(ctx, opts.Device(), opts.Display.PixelFormat)
	if errors.Is(err, accel.ErrBackendUnavailable) {
		return fmt.Errorf("no accelerated backend: %w", err)
	}
	if err != nil {
		return err
	}
	defer cfg.Close()

	cc := cfg.ContextCapabilities()
	fmt.Fprintf(w, "%s\n", cfg)
	fmt.Fprintf(w, "  adapter:       %s\n", cc.AdapterID())
	fmt.Fprintf(w, "  capabilities:  %s\n", cc.Caps())
	fmt.Fprintf(w, "  max texture:   %dx%d\n", cfg.MaxTextureWidth(), cfg.MaxTextureHeight())
	fmt.Fprintf(w, "  double buffer: %v\n", cfg.IsDoubleBuffered())

	bc := cfg.BufferCapabilities()
	fmt.Fprintf(w, "  flip contents: %s\n", bc.Flip)
	if err := cfg.AssertOperationSupported(2, bc); err != nil {
		fmt.Fprintf(w, "  flip strategy: %v\n", err)
	} else {
		fmt.Fprintf(w, "  flip strategy: supported\n")
	}

	for _, k := range []surface.Kind{surface.KindTexture, surface.KindFBObject} {
		img := cfg.CreateCompatibleVolatileImage(64, 64, surface.Translucent, k)
		if img == nil {
			fmt.Fprintf(w, "  %-13s  unsupported\n", k.String()+":")
			continue
		}
		fmt.Fprintf(w, "  %-13s  %s\n", k.String()+":", img.Manager().State())
		img.Flush()
	}

	st := env.Allocator().Stats()
	fmt.Fprintf(w, "  surfaces:      %s\n", st)
	return nil
}
