package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/joho/godotenv"
	"github.com/leonardotrapani/hyprinterview/internal/bus"
	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/daemon"
	"github.com/leonardotrapani/hyprinterview/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	// provider keys may live in a local .env next to the binary's working dir
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: failed to load .env: %v", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "hyprinterview",
	Short:        "Spoken interview practice with live transcription",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		toggleCmd(),
		nextCmd(),
		statusCmd(),
		transcriptCmd(),
		answerCmd(),
		evaluateCmd(),
		practiceCmd(),
		versionCmd(),
		stopCmd(),
		configureCmd(),
		doctorCmd(),
		modelCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			d, err := daemon.FromConfig(mgr)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

// busCmd builds a command that forwards a single byte to the daemon and prints the reply.
func busCmd(use, short string, c byte, what string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(c)
			if err != nil {
				return fmt.Errorf("failed to %s: %w", what, err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func toggleCmd() *cobra.Command {
	return busCmd("toggle", "Start or stop recording an answer", bus.CmdToggle, "toggle recording")
}

func nextCmd() *cobra.Command {
	return busCmd("next", "Ask the next question", bus.CmdNext, "get next question")
}

func statusCmd() *cobra.Command {
	return busCmd("status", "Get recording and transcription status", bus.CmdStatus, "get status")
}

func transcriptCmd() *cobra.Command {
	var copyOut bool

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Print the answer transcribed so far",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := bus.Client{}.Transcript()
			if err != nil {
				return fmt.Errorf("failed to get transcript: %w", err)
			}
			fmt.Println(text)
			if copyOut {
				return copyText(text)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyOut, "copy", false, "also copy the transcript to the clipboard")

	return cmd
}

func versionCmd() *cobra.Command {
	return busCmd("version", "Get protocol version", bus.CmdVersion, "get version")
}

func stopCmd() *cobra.Command {
	return busCmd("stop", "Stop the daemon", bus.CmdQuit, "stop daemon")
}

func answerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "answer <text>",
		Short: "Submit a typed answer instead of speaking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommandArg(bus.CmdAnswer, strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("failed to submit answer: %w", err)
			}
			if _, _, err := bus.ParseReply(resp); err != nil {
				return err
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func evaluateCmd() *cobra.Command {
	var copyOut bool

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Stop recording and score the current answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			fb, err := bus.Client{}.Evaluate()
			if err != nil {
				return fmt.Errorf("failed to evaluate answer: %w", err)
			}
			tui.SetupColor(os.Stdout)
			fmt.Println(tui.RenderFeedback(fb, 0))
			if copyOut {
				return copyText(fb.ModelAnswer)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyOut, "copy", false, "copy the model answer to the clipboard")

	return cmd
}

func copyText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found (install wl-clipboard)")
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

func practiceCmd() *cobra.Command {
	var pickProfile bool

	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Open the interactive practice screen",
		Long: `Open the interactive practice screen against a running daemon.
Use --profile to choose the interview domain, seniority and session type first;
the choice is saved to the config file and picked up by the daemon on reload.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pickProfile {
				if err := saveProfile(); err != nil {
					return err
				}
			}
			if _, err := (bus.Client{}).Status(); err != nil {
				return fmt.Errorf("daemon unavailable (start it with hyprinterview serve): %w", err)
			}
			return tui.Practice(bus.Client{}, "")
		},
	}

	cmd.Flags().BoolVar(&pickProfile, "profile", false, "choose the interview profile before starting")

	return cmd
}

func saveProfile() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFrom(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p := cfg.ToProfile()
	if err := tui.SelectProfile(&p); err != nil {
		return fmt.Errorf("profile selection cancelled: %w", err)
	}
	cfg.Interview.Domain, cfg.Interview.Seniority, cfg.Interview.SessionType = p.Domain, p.Seniority, p.SessionType

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration menu for hyprinterview.
This covers:
- Interview profile (domain, seniority, session type)
- Transcription provider, language and API key
- Answer evaluation
- Notifications and the live transcript server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFrom(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration menu error: %w", err)
	}
	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := config.Save(result.Config, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()
	fmt.Println("Next Steps:")
	fmt.Println("1. Start the daemon: hyprinterview serve")
	fmt.Println("2. Practice: hyprinterview practice")
	fmt.Println()
	fmt.Printf("Config file location: %s\n", path)
	return nil
}
