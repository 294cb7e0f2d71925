// Command simulate runs one order lifecycle headlessly and prints its events.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/pkg/jobs"
	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/types"
)

type options struct {
	Flow       string        `long:"flow" default:"analysis" choice:"analysis" choice:"order" description:"flow to run"`
	AnalystURL string        `long:"analyst-url" env:"ANALYST_URL" description:"poll a job-status backend instead of the scripted analysis"`
	Risk       string        `long:"risk" default:"balanced" description:"risk level sent to the analyst"`
	Sell       string        `long:"sell" default:"ADA" description:"order flow: token to sell"`
	Buy        string        `long:"buy" default:"DJED" description:"order flow: token to buy"`
	Amount     float64       `long:"amount" default:"100" description:"order flow: amount to sell"`
	Speed      float64       `long:"speed" default:"1" description:"divide every delay by this factor"`
	Timeout    time.Duration `long:"timeout" default:"10m" description:"give up after this long"`
	Verbose    bool          `short:"v" long:"verbose" description:"print sequencer logs"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logger := zerolog.Nop()
	if opts.Verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	cfg := sequencer.Config{
		Flow:   sequencer.Flow(opts.Flow),
		Timing: scaled(sequencer.DefaultTiming(), opts.Speed),
		Logger: logger,
	}
	if opts.AnalystURL != "" && cfg.Flow == sequencer.FlowAnalysis {
		cfg.Analyst = jobs.NewAnalyst(jobs.NewClient(opts.AnalystURL), types.JobRequest{
			RiskLevel: opts.Risk,
			Pair:      sequencer.DefaultPair,
			Holdings: []types.Holding{
				{Symbol: sequencer.DefaultPair.Base, Balance: 1000},
				{Symbol: sequencer.DefaultPair.Quote, Balance: 100},
			},
		})
		log.Printf("🔗 Using analyst at %s", opts.AnalystURL)
	}

	seq := sequencer.New(cfg)
	events := make(chan sequencer.Event, 64)
	seq.Subscribe(func(ev sequencer.Event) { events <- ev })
	defer seq.Stop()

	log.Printf("🚀 Starting %s run %s", cfg.Flow, seq.ID())
	var err error
	if cfg.Flow == sequencer.FlowOrder {
		err = seq.Submit(&types.Order{
			SellToken:  opts.Sell,
			BuyToken:   opts.Buy,
			SellAmount: opts.Amount,
			OrderType:  types.OrderTypeMarket,
		})
	} else {
		err = seq.Start()
	}
	if err != nil {
		log.Fatalf("❌ Failed to start run: %v", err)
	}

	deadline := time.After(opts.Timeout)
	printed := 0
	for {
		select {
		case <-deadline:
			log.Fatalf("⏰ Run did not finish within %s", opts.Timeout)
		case ev := <-events:
			if ev.Type == sequencer.EventNotification {
				printNotification(ev.Notification)
				continue
			}
			snap := ev.State
			for ; printed < len(snap.Messages); printed++ {
				log.Printf("   💬 %s", snap.Messages[printed])
			}
			if snap.Stage == sequencer.StageCreating {
				printed = 0
			}
			log.Printf("📍 %-12s %3d%%", snap.Stage, snap.Progress)

			if snap.Stage == sequencer.StageReady && !snap.IsLoading {
				printRecommendation(snap.Recommendation)
				log.Println("✅ Approving recommendation")
				if err := seq.Approve(); err != nil {
					log.Fatalf("❌ Approve failed: %v", err)
				}
				continue
			}
			if snap.Stage.Terminal() {
				printResult(snap)
				if snap.Stage == sequencer.StageFailed || snap.Stage == sequencer.StageTimedOut {
					os.Exit(1)
				}
				return
			}
		}
	}
}

func scaled(t sequencer.Timing, speed float64) sequencer.Timing {
	if speed <= 1 {
		return t
	}
	div := func(d time.Duration) time.Duration {
		if v := time.Duration(float64(d) / speed); v > 0 {
			return v
		}
		return time.Millisecond
	}
	t.AnalyzeDelay = div(t.AnalyzeDelay)
	t.StepDelay = div(t.StepDelay)
	t.FindDelay = div(t.FindDelay)
	t.ExecuteDelay = div(t.ExecuteDelay)
	t.ApproveDelay = div(t.ApproveDelay)
	t.PollInterval = div(t.PollInterval)
	t.PollTimeout = div(t.PollTimeout)
	return t
}

func printNotification(n *sequencer.Notification) {
	icon := "ℹ️"
	switch n.Level {
	case sequencer.LevelSuccess:
		icon = "🎉"
	case sequencer.LevelError:
		icon = "⚠️"
	}
	if n.Description != "" {
		log.Printf("%s %s: %s", icon, n.Title, n.Description)
		return
	}
	log.Printf("%s %s", icon, n.Title)
}

func printRecommendation(rec *types.Recommendation) {
	if rec == nil {
		return
	}
	line := fmt.Sprintf("🤖 Recommendation: %s %v", rec.Command, rec.Quantity)
	if rec.Fallback {
		line += " (fallback)"
	}
	log.Println(line)
}

func printResult(snap *sequencer.Snapshot) {
	fmt.Println("\n==========================================")
	fmt.Printf("  Run:       %s\n", snap.RunID)
	fmt.Printf("  Stage:     %s\n", snap.Stage)
	if snap.Order != nil {
		fmt.Printf("  Order:     %v %s → %s\n", snap.Order.SellAmount, snap.Order.SellToken, snap.Order.BuyToken)
	}
	if snap.TxHash != "" {
		fmt.Printf("  Tx:        %s\n", snap.TxHash)
	}
	if snap.Error != "" {
		fmt.Printf("  Error:     %s\n", snap.Error)
	}
	fmt.Println("==========================================")
}
