// Package digest posts a periodic summary of the redemptions recorded on this
// device to the staff Slack channel.
package digest

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"cuprecap/internal/config"
	"cuprecap/internal/domain"
	"cuprecap/internal/storage/sqlite"
	"cuprecap/internal/tier"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

const lastRunKey = "digest_last_run"

// Entry is one redemption with the tier its current total-cups rank maps to.
type Entry struct {
	Status domain.RedemptionStatus
	Rank   int
	Tier   *domain.Tier
}

// Collect lists redemptions recorded after since and at or before until,
// resolving tiers from stored ranks.
func Collect(db *sql.DB, since, until time.Time) ([]Entry, error) {
	statuses, err := sqlite.RedemptionsBetween(db, since, until)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	ranks := sqlite.NewRankingStore(db)
	entries := make([]Entry, 0, len(statuses))
	for _, st := range statuses {
		e := Entry{Status: st}
		rank, err := ranks.TotalCupsRank(st.Phone)
		if err != nil {
			return nil, fmt.Errorf("rank for %s: %w", domain.MaskPhone(st.Phone), err)
		}
		if rank > 0 {
			if t, err := tier.Resolve(rank); err == nil {
				e.Rank = rank
				e.Tier = &t
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FormatDigest renders entries for Slack. Phones are masked.
func FormatDigest(entries []Entry, since time.Time, device string, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	from := "the beginning"
	if !since.IsZero() {
		from = since.In(loc).Format("2006-01-02 15:04")
	}
	if len(entries) == 0 {
		return fmt.Sprintf("Redemption digest (%s): no rewards redeemed since %s.", device, from)
	}

	perTier := map[int]int{}
	var lines []string
	for _, e := range entries {
		at := "unknown time"
		if !e.Status.RedeemedAt.IsZero() {
			at = e.Status.RedeemedAt.In(loc).Format("01-02 15:04")
		}
		reward := "tier unknown"
		if e.Tier != nil {
			reward = fmt.Sprintf("%s (rank %d)", e.Tier.Name, e.Rank)
			perTier[e.Tier.ID]++
		}
		lines = append(lines, fmt.Sprintf("• %s  %s  %s", at, domain.MaskPhone(e.Status.Phone), reward))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Redemption digest (%s): %d rewards redeemed since %s.\n", device, len(entries), from)
	var counts []string
	for _, t := range tier.All() {
		if n := perTier[t.ID]; n > 0 {
			counts = append(counts, fmt.Sprintf("%s ×%d", t.Name, n))
		}
	}
	if len(counts) > 0 {
		b.WriteString(strings.Join(counts, ", "))
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// RunOnce builds the digest for redemptions after the previous run up to now
// and records now as the new starting point. Each redemption lands in exactly
// one digest.
func RunOnce(cfg config.Config, db *sql.DB, now time.Time) (string, error) {
	kv := sqlite.NewKVStore(db)
	var since time.Time
	raw, ok, err := kv.Get(lastRunKey)
	if err != nil {
		return "", fmt.Errorf("read last digest run: %w", err)
	}
	if ok {
		if since, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			log.Printf("digest last run unreadable value=%q: %v", raw, err)
			since = time.Time{}
		}
	}

	entries, err := Collect(db, since, now)
	if err != nil {
		return "", err
	}
	if err := kv.Set(lastRunKey, now.UTC().Format(time.RFC3339Nano)); err != nil {
		return "", fmt.Errorf("record digest run: %w", err)
	}
	return FormatDigest(entries, since, cfg.DeviceLabel, cfg.Location), nil
}

// StartDigestScheduler posts the digest on the 5-field cron expression in
// digest_schedule, e.g. "0 21 * * *" for every evening at 9pm.
func StartDigestScheduler(cfg config.Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.DigestSchedule)
	if schedule == "" {
		log.Println("Redemption digest disabled (digest_schedule not set)")
		return
	}
	if cfg.RedemptionChannelID == "" {
		log.Println("Redemption digest disabled: redemption_channel_id not set")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid digest_schedule '%s': %v (digest disabled)", schedule, err)
		return
	}
	log.Printf("Redemption digest scheduled (cron: %s) to channel=%s", schedule, cfg.RedemptionChannelID)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next redemption digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			text, err := RunOnce(cfg, db, time.Now())
			if err != nil {
				log.Printf("Redemption digest error: %v", err)
				continue
			}
			if _, _, postErr := api.PostMessage(cfg.RedemptionChannelID, slack.MsgOptionText(text, false)); postErr != nil {
				log.Printf("Redemption digest post error: %v", postErr)
			}
		}
	}()
}
