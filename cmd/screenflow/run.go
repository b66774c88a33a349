package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"screenflow/internal/bootstrap"
	"screenflow/internal/domain"
	"screenflow/internal/logger"
	"screenflow/internal/uploads"
	"screenflow/internal/usecase"
)

const (
	PromptBegin       = "Begin"
	PromptNext        = "Next"
	PromptBack        = "Back"
	PromptExit        = "Exit"
	PromptResume      = "Attach resume"
	PromptCoverLetter = "Attach cover letter"
	PromptAddLink     = "Add link"
	PromptRemoveLink  = "Remove link"
	PromptContinue    = "Continue to chat"
	PromptFinish      = "Finish"
	PromptSubmit      = "Submit application"
	PromptCancel      = "Cancel"
)

const guidanceText = `Before you begin:
  - Have your resume ready (PDF, DOC or DOCX, up to 5 MB).
  - A cover letter and up to 5 portfolio links are optional.
  - The chat takes a few minutes. Answer in your own words.`

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the screening in text chat mode",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run() {
	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer func() { _ = zlog.Sync() }()

	sink := newTerminalSink(os.Stdout)
	services, err := bootstrap.Build(sink, zlog)
	if err != nil {
		zlog.Fatal("building services", zap.Error(err))
	}
	controller := services.Controller
	defer controller.Close()

	zlog.Info("starting the screening", zap.String("version", version))
	controller.Open()

	if err := drive(controller, sink); err != nil && !errors.Is(err, errExit) {
		zlog.Error("screening aborted", zap.Error(err))
	}
}

// drive prompts for the active stage until the flow is closed.
func drive(controller *usecase.ScreeningController, sink *terminalSink) error {
	for !sink.Closed() {
		var err error
		switch controller.Stage() {
		case domain.StageInitial:
			err = initialStage(controller)
		case domain.StageGuidance:
			fmt.Fprintln(sink.out, guidanceText)
			err = choose("Ready?", []string{PromptNext, PromptExit}, map[string]func() error{
				PromptNext: controller.Next,
				PromptExit: controller.Exit,
			})
		case domain.StageUpload:
			err = uploadStage(controller, sink.out)
		case domain.StageChat:
			err = chatStage(controller, sink.out)
		case domain.StageCompletion:
			err = choose("Screening complete. Submit your application?", []string{PromptSubmit, PromptCancel}, map[string]func() error{
				PromptSubmit: controller.Submit,
				PromptCancel: controller.Cancel,
			})
		default:
			return fmt.Errorf("unexpected stage %q", controller.Stage())
		}

		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			if controller.Stage() == domain.StageCompletion {
				return controller.Cancel()
			}
			return controller.Exit()
		}
		if err != nil && !reportedBySink(err) {
			fmt.Fprintf(sink.out, "  ! %s\n", err)
		}
	}
	return nil
}

// reportedBySink reports whether the controller already surfaced err through
// SessionError.
func reportedBySink(err error) bool {
	var validation *uploads.ValidationError
	return errors.As(err, &validation)
}

func initialStage(controller *usecase.ScreeningController) error {
	return choose("Welcome! Ready to start your screening?", []string{PromptBegin, PromptExit}, map[string]func() error{
		PromptBegin: controller.Begin,
		PromptExit:  controller.Exit,
	})
}

func uploadStage(controller *usecase.ScreeningController, out io.Writer) error {
	docs := controller.Snapshot().Uploads
	fmt.Fprintf(out, "Resume: %s | Cover letter: %s | Links: %d\n",
		orNone(docs.Resume), orNone(docs.CoverLetter), len(docs.Links))

	items := []string{PromptResume, PromptCoverLetter, PromptAddLink}
	if len(docs.Links) > 0 {
		items = append(items, PromptRemoveLink)
	}
	items = append(items, PromptContinue, PromptBack, PromptExit)

	return choose("Documents", items, map[string]func() error{
		PromptResume:      func() error { return attach(controller, domain.FileResume) },
		PromptCoverLetter: func() error { return attach(controller, domain.FileCoverLetter) },
		PromptAddLink:     func() error { return addLink(controller) },
		PromptRemoveLink:  func() error { return removeLink(controller, docs.Links) },
		PromptContinue:    controller.ContinueToChat,
		PromptBack:        controller.Back,
		PromptExit:        controller.Exit,
	})
}

func attach(controller *usecase.ScreeningController, kind domain.FileKind) error {
	prompt := promptui.Prompt{
		Label:    "Path to file",
		Validate: validatePath,
	}
	path, err := prompt.Run()
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return controller.AttachFile(kind, filepath.Base(path), info.Size())
}

func validatePath(input string) error {
	info, err := os.Stat(strings.TrimSpace(input))
	if err != nil {
		return errors.New("file not found")
	}
	if info.IsDir() {
		return errors.New("path is a directory")
	}
	return nil
}

func addLink(controller *usecase.ScreeningController) error {
	prompt := promptui.Prompt{Label: "Link (http:// or https://)"}
	link, err := prompt.Run()
	if err != nil {
		return err
	}
	return controller.AddLink(link)
}

func removeLink(controller *usecase.ScreeningController, links []string) error {
	selectPrompt := promptui.Select{
		Label: "Remove which link?",
		Items: append(append([]string(nil), links...), PromptBack),
	}
	_, choice, err := selectPrompt.Run()
	if err != nil || choice == PromptBack {
		return err
	}
	controller.RemoveLink(choice)
	return nil
}

func chatStage(controller *usecase.ScreeningController, out io.Writer) error {
	if controller.ReadyToAdvance() {
		return choose("Ready to move on?", []string{PromptFinish, PromptBack, PromptExit}, map[string]func() error{
			PromptFinish: controller.Finish,
			PromptBack:   controller.Back,
			PromptExit:   controller.Exit,
		})
	}

	prompt := promptui.Prompt{Label: "You"}
	input, err := prompt.Run()
	if err != nil {
		return err
	}

	switch chatCommand(input) {
	case commandBack:
		return controller.Back()
	case commandExit:
		return controller.Exit()
	case commandHelp:
		fmt.Fprintln(out, "Type your answer, or /back to change documents, /exit to leave.")
		return nil
	}
	return controller.SendMessage(input)
}

type command int

const (
	commandNone command = iota
	commandBack
	commandExit
	commandHelp
)

func chatCommand(input string) command {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/back":
		return commandBack
	case "/exit", "/quit":
		return commandExit
	case "/help", "/?":
		return commandHelp
	default:
		return commandNone
	}
}

// choose runs a select prompt and dispatches the picked item.
func choose(label string, items []string, actions map[string]func() error) error {
	selectPrompt := promptui.Select{Label: label, Items: items}
	_, choice, err := selectPrompt.Run()
	if err != nil {
		return err
	}
	action, ok := actions[choice]
	if !ok {
		return errExit
	}
	return action()
}

func orNone(value string) string {
	if value == "" {
		return "none"
	}
	return value
}

// terminalSink prints session events for the terminal host.
type terminalSink struct {
	out io.Writer

	mu     sync.Mutex
	closed bool
}

func newTerminalSink(out io.Writer) *terminalSink {
	return &terminalSink{out: out}
}

func (s *terminalSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *terminalSink) StageChanged(domain.Stage) {}

func (s *terminalSink) MessageAppended(message domain.Message) {
	if message.Sender != domain.SenderAssistant {
		return
	}
	fmt.Fprintf(s.out, "Assistant: %s\n", message.Text)
}

func (s *terminalSink) ProcessingChanged(processing bool) {
	if processing {
		fmt.Fprintln(s.out, "  (assistant is typing...)")
	}
}

func (s *terminalSink) CallStateChanged(domain.CallStatus)      {}
func (s *terminalSink) DictationChanged(domain.DictationStatus) {}

func (s *terminalSink) FlowClosed(stage domain.Stage) {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	switch stage {
	case domain.StageSubmitted:
		fmt.Fprintln(s.out, "Your application has been submitted. Thank you!")
	case domain.StageCancelled:
		fmt.Fprintln(s.out, "Screening cancelled.")
	}
}

func (s *terminalSink) SessionError(code domain.ErrorCode, detail string) {
	fmt.Fprintf(s.out, "  ! %s: %s\n", code, detail)
}
