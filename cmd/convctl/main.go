package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"convstore/gateway"
	"convstore/model"
	"convstore/platform"
	"convstore/service"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "convctl",
	Short: "Conversation history store command-line tool",
	Long: `convctl runs the conversation store operations against the configured
database gateway (DB_BACKEND=d1 or mysql, read from the environment or .env).

Examples:
  convctl init
  convctl put --conversation c1 --role user --text hi
  convctl get c1 --format json --max-round 10 --user-input "what next?"`,
	SilenceUsage: true,
}

var envFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Env file to load before reading the environment")

	rootCmd.AddCommand(initCmd, putCmd, getCmd, createCmd, verifyCmd)

	putCmd.Flags().String("conversation", "", "Conversation id (generated when empty)")
	putCmd.Flags().String("role", model.RoleUser, "Message role")
	putCmd.Flags().String("text", "", "Message text")
	putCmd.Flags().String("parent", "", "Parent message id")
	putCmd.Flags().String("metadata", "", "Message metadata as a JSON object")

	getCmd.Flags().String("format", "xml", "Output format: xml or json")
	getCmd.Flags().Int("max-round", 0, "Maximum number of messages (default DEFAULT_MAX_ROUND)")
	getCmd.Flags().String("user-input", "", "Pending user turn appended to the output")
	getCmd.Flags().String("message-id", service.DefaultMessageID, "Starting message id (reserved)")

	createCmd.Flags().String("id", "", "Conversation id (generated when empty)")
	createCmd.Flags().String("project", "", "Project tag")
	createCmd.Flags().String("brand", "", "Brand tag")
	createCmd.Flags().String("sequence", string(model.SequenceSequential), "sequential or tree")
	createCmd.Flags().String("metadata", "", "Conversation metadata as a JSON object")
}

func openGateway() (*platform.Config, gateway.Gateway, error) {
	cfg, err := platform.LoadConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	gw, err := platform.InitDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gw, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Conversation and Message tables if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, gw, err := openGateway()
		if err != nil {
			return err
		}
		status, err := service.EnsureSchema(cmd.Context(), gw)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), status)
	},
}

var putCmd = &cobra.Command{
	Use:   "put",
	Short: "Append a message to a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, gw, err := openGateway()
		if err != nil {
			return err
		}
		req := service.AppendRequest{}
		req.ConversationID, _ = cmd.Flags().GetString("conversation")
		req.Role, _ = cmd.Flags().GetString("role")
		req.Text, _ = cmd.Flags().GetString("text")
		req.ParentMessageID, _ = cmd.Flags().GetString("parent")
		raw, _ := cmd.Flags().GetString("metadata")
		if req.Metadata, err = model.DecodeDocument(raw); err != nil {
			return err
		}

		res, err := service.NewConversationService(gw).AppendMessage(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <conversation-id>",
	Short: "Render the conversation history as XML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, gw, err := openGateway()
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		maxRound, _ := cmd.Flags().GetInt("max-round")
		userInput, _ := cmd.Flags().GetString("user-input")
		messageID, _ := cmd.Flags().GetString("message-id")
		if maxRound <= 0 {
			maxRound = cfg.DefaultMaxRound
		}
		if format != "xml" && format != "json" {
			return fmt.Errorf("unsupported format: %s, only 'xml' and 'json' are supported", format)
		}

		conv, err := service.NewConversationService(gw).GetConversation(cmd.Context(), args[0], service.ReadOptions{
			MessageID: messageID,
			MaxRound:  maxRound,
		})
		if err != nil {
			platform.Logger.Warnf("[%s] load conversation error, %s", args[0], err)
			conv = nil
		}

		if format == "json" {
			return printJSON(cmd.OutOrStdout(), service.RenderJSON(conv, userInput))
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), service.WrapHistoryXML(service.RenderXML(conv, ""), userInput))
		return err
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a conversation explicitly (needed for tree conversations)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, gw, err := openGateway()
		if err != nil {
			return err
		}
		req := service.NewConversationRequest{}
		req.ConversationID, _ = cmd.Flags().GetString("id")
		req.Project, _ = cmd.Flags().GetString("project")
		req.Brand, _ = cmd.Flags().GetString("brand")
		sequence, _ := cmd.Flags().GetString("sequence")
		req.Sequence = model.Sequence(sequence)
		raw, _ := cmd.Flags().GetString("metadata")
		if req.Metadata, err = model.DecodeDocument(raw); err != nil {
			return err
		}

		conv, err := service.NewConversationService(gw).CreateConversation(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), conv)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check gateway reachability and credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, gw, err := openGateway()
		if err != nil {
			return err
		}
		if err := service.HealthTask(cmd.Context(), gw); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return err
	},
}
