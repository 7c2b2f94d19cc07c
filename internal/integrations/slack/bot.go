package slackbot

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"cuprecap/internal/config"
	"cuprecap/internal/domain"
	"cuprecap/internal/recap"
	"cuprecap/internal/redemption"
	"cuprecap/internal/tier"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

const (
	actionRedeemOpen      = "redeem_open"
	modalRedeemCallbackID = "redeem_confirm_modal"
	redeemMetaPrefix      = "redeem:"
)

func StartSlackBot(cfg config.Config, svc *recap.Service, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, svc, cfg, cmd)
			case socketmode.EventTypeInteractive:
				client.Ack(*evt.Request)
				callback, ok := evt.Data.(slack.InteractionCallback)
				if !ok {
					continue
				}
				go handleInteraction(api, svc, cfg, callback)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, svc *recap.Service, cfg config.Config, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/redeem":
		handleRedeem(api, svc, cfg, cmd)
	case "/recap":
		handleRecap(api, svc, cfg, cmd)
	}
}

func handleRedeem(api *slack.Client, svc *recap.Service, cfg config.Config, cmd slack.SlashCommand) {
	if !canRedeem(cfg, cmd.UserID) {
		postEphemeral(api, cmd, "Only store staff can redeem rewards.")
		log.Printf("redeem denied user=%s (not staff)", cmd.UserID)
		return
	}
	p, err := parseRedeemArgs(cmd.Text)
	if err != nil {
		postEphemeral(api, cmd, redeemErrorText(err))
		return
	}
	view, err := svc.RedeemView(p)
	if err != nil {
		postEphemeral(api, cmd, redeemErrorText(err))
		log.Printf("redeem view error user=%s phone=%s: %v", cmd.UserID, domain.MaskPhone(p.Phone), err)
		return
	}

	_, err = api.PostEphemeral(cmd.ChannelID, cmd.UserID,
		slack.MsgOptionText(formatRedeemSummary(view, cfg.Location), false),
		slack.MsgOptionBlocks(buildRedeemBlocks(view, cfg.Location)...),
	)
	if err != nil {
		log.Printf("redeem post error user=%s: %v", cmd.UserID, err)
	}
}

func handleRecap(api *slack.Client, svc *recap.Service, cfg config.Config, cmd slack.SlashCommand) {
	if !canRedeem(cfg, cmd.UserID) {
		postEphemeral(api, cmd, "Only store staff can look up customer recaps.")
		return
	}
	phone := strings.TrimSpace(cmd.Text)
	if phone == "" {
		postEphemeral(api, cmd, "Usage: /recap <phone>")
		return
	}
	rec, err := svc.Report(phone)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		postEphemeral(api, cmd, recap.NotFoundMessage)
		return
	}
	if err != nil {
		postEphemeral(api, cmd, "Could not build this recap. Please try again later.")
		log.Printf("recap error user=%s phone=%s: %v", cmd.UserID, domain.MaskPhone(phone), err)
		return
	}
	postEphemeral(api, cmd, formatRecap(rec, svc.ReportOptions().MonthLabels()))
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	postEphemeralTo(api, cmd.ChannelID, cmd.UserID, text)
}

func postEphemeralTo(api *slack.Client, channelID, userID, text string) {
	_, err := api.PostEphemeral(channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("Error posting ephemeral: %v", err)
	}
}

func handleInteraction(api *slack.Client, svc *recap.Service, cfg config.Config, cb slack.InteractionCallback) {
	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		handleBlockActions(api, cfg, cb)
	case slack.InteractionTypeViewSubmission:
		if cb.View.CallbackID == modalRedeemCallbackID {
			handleRedeemConfirm(api, svc, cfg, cb)
		}
	}
}

func handleBlockActions(api *slack.Client, cfg config.Config, cb slack.InteractionCallback) {
	if len(cb.ActionCallback.BlockActions) == 0 {
		return
	}
	act := cb.ActionCallback.BlockActions[0]
	channelID := cb.Channel.ID
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}
	if act.ActionID != actionRedeemOpen {
		return
	}
	p, err := decodeRedeemValue(act.Value)
	if err != nil {
		postEphemeralTo(api, channelID, cb.User.ID, "Invalid redemption request.")
		return
	}
	openRedeemConfirmModal(api, cb.TriggerID, channelID, p)
}

func openRedeemConfirmModal(api *slack.Client, triggerID, channelID string, p redemption.Params) {
	t, err := tier.Resolve(p.Rank)
	if err != nil {
		return
	}
	prompt := fmt.Sprintf("%s\n\n*%s* for %s (rank %d)", redemption.ConfirmPrompt, t.Name, domain.MaskPhone(p.Phone), p.Rank)

	view := slack.ModalViewRequest{
		Type:            slack.VTModal,
		Title:           slack.NewTextBlockObject(slack.PlainTextType, "Confirm redemption", false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, "Redeem", false, false),
		CallbackID:      modalRedeemCallbackID,
		PrivateMetadata: encodeRedeemMeta(p, channelID),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType, prompt, false, false),
				nil, nil,
			),
		}},
	}
	if _, err := api.OpenView(triggerID, view); err != nil {
		log.Printf("redeem confirm modal error: %v", err)
	}
}

func handleRedeemConfirm(api *slack.Client, svc *recap.Service, cfg config.Config, cb slack.InteractionCallback) {
	userID := cb.User.ID
	if !canRedeem(cfg, userID) {
		log.Printf("redeem confirm denied user=%s (not staff)", userID)
		return
	}
	p, channelID, err := decodeRedeemMeta(cb.View.PrivateMetadata)
	if err != nil {
		log.Printf("redeem confirm bad metadata user=%s: %v", userID, err)
		return
	}
	if channelID == "" {
		channelID = cb.Container.ChannelID
	}

	// Submitting the modal is the operator's confirmation.
	approved := redemption.ConfirmFunc(func(string) (bool, error) { return true, nil })
	view, err := svc.Redeem(p, approved)
	if err != nil {
		postEphemeralTo(api, channelID, userID, redeemErrorText(err))
		log.Printf("redeem error user=%s phone=%s: %v", userID, domain.MaskPhone(p.Phone), err)
		return
	}

	postEphemeralTo(api, channelID, userID, fmt.Sprintf("Redeemed %s for %s.", view.Tier.Name, domain.MaskPhone(view.Phone)))
	if cfg.RedemptionChannelID != "" {
		notice := formatRedemptionNotice(view, userID, cfg.DeviceLabel, cfg.Location)
		if _, _, err := api.PostMessage(cfg.RedemptionChannelID, slack.MsgOptionText(notice, false)); err != nil {
			log.Printf("redemption notice error channel=%s: %v", cfg.RedemptionChannelID, err)
		}
	}
	log.Printf("redeem confirmed user=%s phone=%s tier=%d", userID, domain.MaskPhone(view.Phone), view.Tier.ID)
}

// canRedeem allows everyone when no staff list is configured.
func canRedeem(cfg config.Config, userID string) bool {
	if len(cfg.StaffSlackIDs) == 0 {
		return true
	}
	return cfg.IsStaffID(userID)
}

func parseRedeemArgs(text string) (redemption.Params, error) {
	fields := strings.Fields(text)
	if len(fields) != 2 {
		return redemption.Params{}, domain.ErrNoRedeemParams
	}
	return redemption.ParseParams(url.Values{"redeem": {fields[0]}, "rank": {fields[1]}})
}

func encodeRedeemValue(p redemption.Params) string {
	return fmt.Sprintf("%s|%d", p.Phone, p.Rank)
}

func decodeRedeemValue(v string) (redemption.Params, error) {
	parts := strings.SplitN(strings.TrimSpace(v), "|", 2)
	if len(parts) != 2 {
		return redemption.Params{}, domain.ErrNoRedeemParams
	}
	return redemption.ParseParams(url.Values{"redeem": {parts[0]}, "rank": {parts[1]}})
}

func encodeRedeemMeta(p redemption.Params, channelID string) string {
	return redeemMetaPrefix + encodeRedeemValue(p) + "|" + channelID
}

func decodeRedeemMeta(meta string) (redemption.Params, string, error) {
	meta = strings.TrimSpace(meta)
	if !strings.HasPrefix(meta, redeemMetaPrefix) {
		return redemption.Params{}, "", fmt.Errorf("unexpected metadata %q", meta)
	}
	body := strings.TrimPrefix(meta, redeemMetaPrefix)
	idx := strings.LastIndex(body, "|")
	if idx < 0 {
		return redemption.Params{}, "", fmt.Errorf("unexpected metadata %q", meta)
	}
	p, err := decodeRedeemValue(body[:idx])
	if err != nil {
		return redemption.Params{}, "", err
	}
	return p, strings.TrimSpace(body[idx+1:]), nil
}

func redeemErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoRedeemParams):
		return "Usage: /redeem <phone> <rank>"
	case errors.Is(err, domain.ErrInvalidRank):
		return "Rank must be a positive whole number."
	case errors.Is(err, domain.ErrAlreadyRedeemed):
		return "This reward has already been redeemed."
	case errors.Is(err, domain.ErrNotConfirmed):
		return "Redemption cancelled."
	default:
		return "Redemption failed. Please try again."
	}
}

func formatTimestamp(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "unknown time"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04")
}
