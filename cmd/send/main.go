// Command send runs one outbound batch: it picks queued and new leads,
// best scored first, and emails them with human-like pacing until the daily
// cap or the work window runs out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abaplay/outreach/internal/config"
	"github.com/abaplay/outreach/internal/domain"
	"github.com/abaplay/outreach/internal/sender"
	"github.com/abaplay/outreach/internal/store"
	"github.com/abaplay/outreach/internal/template"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	campaignID := flag.String("campaign", "", "restrict the batch to one campaign")
	dryRun := flag.Bool("dry-run", false, "use a no-op transport; attempts are still logged")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database url is required (config database.url or DATABASE_URL)")
	}
	if !*dryRun && cfg.Resend.APIKey == "" {
		log.Fatal("resend api key is required (config resend.api_key or RESEND_API_KEY)")
	}

	st, err := store.Open(cfg.Database.URL, store.Options{
		BlacklistTTL:  time.Duration(cfg.Cache.BlacklistTTLSeconds) * time.Second,
		DailyCountTTL: time.Duration(cfg.Cache.DailyCountTTLSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Println("interrupt received, finishing current email")
		cancel()
	}()

	var limiter sender.Limiter
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		limiter = sender.NewDailyLimiter(rdb, cfg.Redis.KeyPrefix)
	}

	var transport sender.Transport
	if *dryRun {
		transport = dryTransport{}
	} else {
		transport = sender.NewResendClient(cfg.Resend.APIKey)
	}

	snd := sender.New(st, transport, template.New(), limiter, cfg.Resend.FromName, cfg.Resend.FromEmail)

	leads, err := pickLeads(ctx, st, *campaignID)
	if err != nil {
		log.Fatalf("select leads: %v", err)
	}
	if len(leads) == 0 {
		log.Println("nothing to send")
		return
	}
	log.Printf("batch of %d leads", len(leads))

	workStart, workEnd, pacer, err := batchSettings(ctx, st, cfg)
	if err != nil {
		log.Fatalf("read settings: %v", err)
	}

	sent := 0
	for i := range leads {
		if ctx.Err() != nil {
			break
		}
		if !sender.WithinWorkHours(time.Now(), workStart, workEnd) {
			log.Println("outside work hours, stopping batch")
			break
		}

		res, err := snd.Send(ctx, &leads[i])
		switch {
		case err != nil:
			log.Printf("lead %s: %v", leads[i].ID, err)
		case res.Skipped:
			log.Printf("lead %s: skipped: %s", leads[i].ID, res.SkipReason)
			continue
		default:
			sent++
			log.Printf("lead %s: sent (%s)", leads[i].ID, res.LogID)
		}

		if i < len(leads)-1 {
			d := pacer.Next(sent)
			log.Printf("waiting %s", d.Round(time.Second))
			select {
			case <-time.After(d):
			case <-ctx.Done():
			}
		}
	}
	log.Printf("batch complete: %d sent", sent)
}

// settingsReader is the slice of the store the batch tuning needs.
type settingsReader interface {
	IntSetting(ctx context.Context, key string, fallback int) (int, error)
}

// batchSettings reads the pacing and work-window tunables. A read failure
// aborts the batch rather than silently running with zeroed hours.
func batchSettings(ctx context.Context, st settingsReader, cfg *config.Config) (workStart, workEnd int, pacer *sender.Pacer, err error) {
	if workStart, err = st.IntSetting(ctx, domain.SettingWorkHoursStart, 9); err != nil {
		return 0, 0, nil, fmt.Errorf("setting %s: %w", domain.SettingWorkHoursStart, err)
	}
	if workEnd, err = st.IntSetting(ctx, domain.SettingWorkHoursEnd, 18); err != nil {
		return 0, 0, nil, fmt.Errorf("setting %s: %w", domain.SettingWorkHoursEnd, err)
	}
	meanSec, err := st.IntSetting(ctx, domain.SettingDelayMean, cfg.Sending.DelayMeanSeconds)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("setting %s: %w", domain.SettingDelayMean, err)
	}
	stdSec, err := st.IntSetting(ctx, domain.SettingDelayStd, cfg.Sending.DelayStdSeconds)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("setting %s: %w", domain.SettingDelayStd, err)
	}

	pacer = sender.NewPacer(time.Duration(meanSec)*time.Second, time.Duration(stdSec)*time.Second)
	pacer.Min = time.Duration(cfg.Sending.DelayMinSeconds) * time.Second
	return workStart, workEnd, pacer, nil
}

// pickLeads returns queued leads first, then fresh ones, each group already
// ordered best score first by the store.
func pickLeads(ctx context.Context, st *store.Store, campaignID string) ([]domain.Lead, error) {
	if campaignID != "" {
		leads, err := st.LeadsByCampaign(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		var out []domain.Lead
		for _, l := range leads {
			if l.Status == domain.LeadQueued || l.Status == domain.LeadNew {
				out = append(out, l)
			}
		}
		return out, nil
	}

	queued, err := st.LeadsByStatus(ctx, domain.LeadQueued)
	if err != nil {
		return nil, err
	}
	fresh, err := st.LeadsByStatus(ctx, domain.LeadNew)
	if err != nil {
		return nil, err
	}
	return append(queued, fresh...), nil
}

// dryTransport renders the full pipeline without calling the provider.
type dryTransport struct{}

func (dryTransport) Send(_ context.Context, msg *sender.Message) (string, error) {
	log.Printf("[dry-run] would send %q to %s", msg.Subject, msg.To)
	return "dry-run", nil
}
