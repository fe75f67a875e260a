package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mastery-quiz-service/internal/app"
	"mastery-quiz-service/internal/config"
	"mastery-quiz-service/internal/domain"
	"mastery-quiz-service/internal/engine"
	"mastery-quiz-service/internal/infra/memory"
)

// NewPlayCmd runs a single quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		file string
		mode string
		tick time.Duration
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			quiz := sampleQuiz()
			if file != "" {
				var err error
				if quiz, err = loadQuizFile(file); err != nil {
					return err
				}
			}
			m, err := domain.ParseMode(mode)
			if err != nil {
				return err
			}
			bonus, err := playSpeedBonus(*configPath)
			if err != nil {
				return err
			}
			return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), quiz, m, bonus, tick)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML quiz file (defaults to a built-in sample)")
	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeNormal), "normal or headToHead")
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "how often the question timer advances one second")
	return cmd
}

// playSpeedBonus uses the configured reward table when a config file exists.
func playSpeedBonus(path string) (engine.SpeedBonus, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return engine.DefaultSpeedBonus(), nil
	}
	if err != nil {
		return engine.SpeedBonus{}, err
	}
	return cfg.Rewards.SpeedBonus()
}

// runPlay drives one session from line input. Input lines and timer ticks are
// multiplexed on this goroutine, so the session only ever sees one caller.
func runPlay(ctx context.Context, in io.Reader, out io.Writer, quiz domain.Quiz, mode domain.Mode, bonus engine.SpeedBonus, tick time.Duration) error {
	if tick <= 0 {
		tick = time.Second
	}
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{quiz.ID: quiz})
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewQuizRepository(loader, time.Minute),
		memory.NewProgressStore(),
		nil,
		app.WithSpeedBonus(bonus),
	)

	view, err := service.StartSession(ctx, quiz.ID, "terminal", mode)
	if err != nil {
		return err
	}
	events, cancel, err := service.Subscribe(ctx, view.SessionID)
	if err != nil {
		return err
	}
	defer cancel()

	lines := make(chan string)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
	}()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	fmt.Fprintf(out, "%s: %d questions, %s mode. Type q to quit.\n", quiz.ID, view.Total, mode)
	printQuestion(out, view)
	revealed := false

	// drain reports true once the session has finished; the session
	// broadcasts before returning, so events are already buffered here.
	drain := func() bool {
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return true
				}
				switch event.Type {
				case domain.EventWeakTopic:
					printWeakTopic(out, event.WeakTopic)
				case domain.EventSessionCompleted:
					printResult(out, event.Result)
				}
			default:
				return false
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			service.Leave(ctx, view.SessionID)
			return ctx.Err()
		case <-ticker.C:
			_ = service.Tick(view.SessionID)
		case line, ok := <-lines:
			if !ok || strings.EqualFold(strings.TrimSpace(line), "q") {
				service.Leave(ctx, view.SessionID)
				fmt.Fprintln(out, "Session abandoned.")
				return nil
			}
			if revealed {
				progress, err := service.Continue(ctx, view.SessionID)
				if err != nil {
					return err
				}
				revealed = false
				if progress.Question != nil {
					printQuestion(out, *progress.Question)
				}
			} else {
				n, err := strconv.Atoi(strings.TrimSpace(line))
				if err != nil {
					fmt.Fprintf(out, "Pick an option number.\n> ")
					continue
				}
				outcome, err := service.SubmitAnswer(ctx, view.SessionID, n-1)
				if errors.Is(err, domain.ErrOptionOutOfRange) {
					fmt.Fprintf(out, "No option %d.\n> ", n)
					continue
				}
				if err != nil {
					return err
				}
				revealed = true
				printOutcome(out, outcome)
			}
			if drain() {
				return nil
			}
		}
	}
}

func printQuestion(out io.Writer, view domain.QuestionView) {
	fmt.Fprintf(out, "\n[%d/%d] %s\n", view.Solved, view.Total, view.Text)
	for i, option := range view.Options {
		fmt.Fprintf(out, "  %d) %s\n", i+1, option)
	}
	fmt.Fprint(out, "> ")
}

func printOutcome(out io.Writer, outcome domain.AnswerOutcome) {
	if outcome.Correct {
		fmt.Fprintf(out, "Correct! +%d (total %d)\n", outcome.Awarded, outcome.TotalReward)
	} else {
		fmt.Fprintf(out, "Wrong. The answer was %d.\n", outcome.CorrectOptionIndex+1)
	}
	if outcome.Explanation != "" {
		fmt.Fprintln(out, outcome.Explanation)
	}
	if !outcome.Terminated {
		fmt.Fprint(out, "Press Enter to continue.")
	}
}

func printWeakTopic(out io.Writer, topic *domain.WeakTopic) {
	if topic.TopicID != "" {
		fmt.Fprintf(out, "\nWeak topic flagged: %s (question %s)\n", topic.TopicID, topic.QuestionID)
		return
	}
	fmt.Fprintf(out, "\nWeak topic flagged: question %s\n", topic.QuestionID)
}

func printResult(out io.Writer, result *domain.SessionResult) {
	fmt.Fprintf(out, "\nDone: %d/%d correct, reward %d, %ds elapsed.\n",
		result.CorrectCount, result.TotalQuestions, result.TotalReward, result.ElapsedSeconds)
}
