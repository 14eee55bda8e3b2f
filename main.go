package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/google/generative-ai-go/genai"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"voice-drive/clients/drive_api"
	"voice-drive/command_interpreter"
	"voice-drive/config"
	"voice-drive/dispatcher"
	"voice-drive/drive_state"
	"voice-drive/listener"
	"voice-drive/pin_driver"
	"voice-drive/speech_extraction"
	"voice-drive/speech_to_text"
	"voice-drive/status_server"
)

var (
	cfgFile string
	v       = config.NewViper()
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("status-addr", "", "address of the status server")

	rootCmd.Flags().String("adaptor", pin_driver.AdaptorRaspi, "gpio adaptor: raspi or firmata")
	rootCmd.Flags().String("backend", config.BackendWhisper, "speech to text backend: whisper or gemini")
	rootCmd.Flags().StringP("model", "m", "", "model file for whisper")
	rootCmd.Flags().String("replay-dir", "", "replay wav files from this directory instead of the microphone")
	rootCmd.Flags().String("record-dir", "", "save every utterance to this directory")

	v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	v.BindPFlag("status.addr", rootCmd.PersistentFlags().Lookup("status-addr"))
	v.BindPFlag("adaptor", rootCmd.Flags().Lookup("adaptor"))
	v.BindPFlag("stt.backend", rootCmd.Flags().Lookup("backend"))
	v.BindPFlag("stt.model", rootCmd.Flags().Lookup("model"))
	v.BindPFlag("audio.replay_dir", rootCmd.Flags().Lookup("replay-dir"))
	v.BindPFlag("audio.record_dir", rootCmd.Flags().Lookup("record-dir"))

	rootCmd.AddCommand(sendCmd)
}

func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:          "voice-drive",
	Short:        "Drive a two motor robot by voice",
	Long:         `Listens for spoken commands (forward, backward, left, right, stop) and drives the motor direction pins accordingly.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runController,
}

var sendCmd = &cobra.Command{
	Use:          "send TEXT",
	Short:        "Send a text command to a running controller",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runSend,
}

func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
	})
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger)
	if err != nil {
		logger.Error("controller stopped", "err", err)
		return err
	}

	logger.Info("controller stopped")

	return nil
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) (err error) {
	connection, err := pin_driver.NewAdaptor(cfg.Adaptor, cfg.FirmataPort)
	if err != nil {
		return err
	}

	pins, err := pin_driver.New(&pin_driver.Config{
		Connection: connection,
		Pins:       cfg.Pins,
		Logger:     logger.WithPrefix("pins"),
	})
	if err != nil {
		return err
	}

	defer func() {
		err = multierror.Append(err, pins.Close()).ErrorOrNil()
	}()

	err = pins.Configure()
	if err != nil {
		return fmt.Errorf("configuring pins: %w", err)
	}

	machine, err := drive_state.New(&drive_state.Config{
		Writer: pins,
		Logger: logger.WithPrefix("drive"),
	})
	if err != nil {
		return err
	}

	interpreter, err := command_interpreter.New(&command_interpreter.Config{
		Synonyms: cfg.Interpreter.Synonyms,
	})
	if err != nil {
		return err
	}

	commands, err := dispatcher.New(&dispatcher.Config{
		Applier: machine,
		Workers: cfg.Dispatch.Workers,
		Logger:  logger.WithPrefix("dispatch"),
	})
	if err != nil {
		return err
	}

	sttEngine, closeSTT, err := newSTTEngine(ctx, cfg, logger.WithPrefix("stt"))
	if err != nil {
		return err
	}

	defer func() {
		err = multierror.Append(err, closeSTT()).ErrorOrNil()
	}()

	source, err := newSource(cfg, logger.WithPrefix("audio"))
	if err != nil {
		return err
	}

	defer func() {
		err = multierror.Append(err, source.Close()).ErrorOrNil()
	}()

	var recorder listener.Recorder
	if cfg.Audio.RecordDir != "" {
		recorder, err = speech_extraction.NewRecorder(&speech_extraction.RecorderConfig{
			FileSys: afero.NewOsFs(),
			Dir:     cfg.Audio.RecordDir,
		})
		if err != nil {
			return err
		}
	}

	listen, err := listener.New(&listener.Config{
		Source:      source,
		STTEngine:   sttEngine,
		Interpreter: interpreter,
		Dispatcher:  commands,
		Recorder:    recorder,
		Calibration: cfg.Audio.Calibration,
		Logger:      logger.WithPrefix("listen"),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// an exhausted replay source ends the whole controller
		defer cancel()
		return listen.Run(gctx)
	})

	g.Go(func() error {
		return commands.Run(gctx)
	})

	if cfg.Status.Addr != "" {
		server, err := status_server.New(&status_server.Config{
			State:       machine,
			Interpreter: interpreter,
			Dispatcher:  commands,
			Logger:      logger.WithPrefix("http"),
		})
		if err != nil {
			return err
		}

		g.Go(func() error {
			return server.Serve(gctx, cfg.Status.Addr)
		})
	}

	return g.Wait()
}

func newSTTEngine(ctx context.Context, cfg *config.Config, logger *log.Logger) (speech_to_text.Interface, func() error, error) {
	switch cfg.STT.Backend {
	case config.BackendGemini:
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.STT.GeminiAPIKey))
		if err != nil {
			return nil, nil, fmt.Errorf("creating gemini client: %w", err)
		}

		sttEngine, err := speech_to_text.NewGemini(&speech_to_text.GeminiConfig{
			Client:   client,
			Model:    cfg.STT.GeminiModel,
			Language: cfg.STT.Language,
			Timeout:  cfg.STT.Timeout,
			Logger:   logger,
		})
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}

		return sttEngine, client.Close, nil
	default:
		model, err := whisper.New(cfg.STT.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("error loading model: %w", err)
		}

		sttEngine, err := speech_to_text.New(&speech_to_text.Config{
			Model:    model,
			Language: cfg.STT.Language,
			Timeout:  cfg.STT.Timeout,
			Logger:   logger,
		})
		if err != nil {
			_ = model.Close()
			return nil, nil, err
		}

		return sttEngine, model.Close, nil
	}
}

func newSource(cfg *config.Config, logger *log.Logger) (speech_extraction.Source, error) {
	if cfg.Audio.ReplayDir != "" {
		return speech_extraction.NewReplay(&speech_extraction.ReplayConfig{
			FileSys: afero.NewOsFs(),
			Dir:     cfg.Audio.ReplayDir,
			Logger:  logger,
		})
	}

	return speech_extraction.NewMicrophone(&speech_extraction.MicrophoneConfig{
		Detector: speech_extraction.DetectorConfig{
			QuietTime:     cfg.Audio.QuietTime,
			ListenTimeout: cfg.Audio.ListenTimeout,
			MaxUtterance:  cfg.Audio.MaxUtterance,
		},
		Logger: logger,
	})
}

func runSend(cmd *cobra.Command, args []string) error {
	addr := v.GetString("status.addr")
	if addr == "" {
		return fmt.Errorf("status.addr is not set")
	}

	client, err := drive_api.NewClient(&drive_api.Config{ApiHost: addr})
	if err != nil {
		return err
	}

	name, err := client.SendCommand(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), name)

	return nil
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
