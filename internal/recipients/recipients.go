// Package recipients turns a rule's recipient spec into channel addresses.
//
// A spec is a comma separated token list. Tokens are member ids, payload keys
// (replaced by the payload value) or group references ("group:<id>"). The
// reserved tokens "trigger" and "receiver" stand for the triggering actor,
// whose address is always appended separately.
package recipients

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// GroupPrefix marks a token that expands to every member of a group.
const GroupPrefix = "group:"

// DefaultRegion is used to parse phone numbers without a country prefix.
const DefaultRegion = "VN"

// Directory looks up member addresses.
type Directory interface {
	// ChatIDs maps member ids to chat user ids. Members without one are absent.
	ChatIDs(ctx context.Context, memberIDs []string) (map[string]string, error)
	GroupMembers(ctx context.Context, groupID string) ([]domain.Member, error)
}

// Resolver resolves recipient specs.
type Resolver struct {
	dir    Directory
	region string
}

// NewResolver creates a recipient resolver. An empty region falls back to
// DefaultRegion.
func NewResolver(dir Directory, region string) *Resolver {
	if region == "" {
		region = DefaultRegion
	}
	return &Resolver{dir: dir, region: strings.ToUpper(region)}
}

// Resolve returns the de-duplicated addresses for a chat or SMS rule.
// Unresolvable tokens are dropped. Other channel types yield nil.
func (r *Resolver) Resolve(ctx context.Context, channel domain.ChannelType, spec string, flattened map[string]string, actor domain.Actor) []string {
	tokens, groups := r.tokenize(spec, flattened)

	var addrs []string
	switch channel {
	case domain.ChannelChatTemplate:
		addrs = r.chatAddresses(ctx, tokens, groups)
		if actor.Chat != "" {
			addrs = append(addrs, strings.TrimSpace(actor.Chat))
		}
	case domain.ChannelAggregatorSMS:
		addrs = r.phoneAddresses(ctx, tokens, groups)
		if actor.Phone != "" {
			if phone, ok := r.NormalizePhone(actor.Phone); ok {
				addrs = append(addrs, phone)
			} else {
				slog.Debug("Dropping invalid actor phone", "phone", actor.Phone)
			}
		}
	default:
		return nil
	}

	return Dedupe(addrs)
}

// tokenize splits the spec, drops reserved words and substitutes payload keys.
func (r *Resolver) tokenize(spec string, flattened map[string]string) (tokens, groups []string) {
	for _, raw := range strings.Split(spec, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" || IsReserved(tok) {
			continue
		}
		if len(tok) > len(GroupPrefix) && strings.EqualFold(tok[:len(GroupPrefix)], GroupPrefix) {
			groups = append(groups, strings.TrimSpace(tok[len(GroupPrefix):]))
			continue
		}
		if v, ok := flattened[tok]; ok {
			tok = strings.TrimSpace(v)
			if tok == "" {
				continue
			}
		}
		tokens = append(tokens, tok)
	}
	return tokens, groups
}

func (r *Resolver) chatAddresses(ctx context.Context, memberIDs, groups []string) []string {
	var addrs []string

	if len(memberIDs) > 0 && r.dir != nil {
		ids, err := r.dir.ChatIDs(ctx, memberIDs)
		if err != nil {
			slog.Warn("Failed to look up chat ids", "count", len(memberIDs), "error", err)
		}
		for _, id := range memberIDs {
			if chatID := ids[id]; chatID != "" {
				addrs = append(addrs, chatID)
			} else {
				slog.Debug("Dropping member without chat id", "member_id", id)
			}
		}
	}

	for _, m := range r.groupMembers(ctx, groups) {
		if m.ChatID != "" {
			addrs = append(addrs, m.ChatID)
		}
	}
	return addrs
}

func (r *Resolver) phoneAddresses(ctx context.Context, tokens, groups []string) []string {
	var addrs []string
	for _, tok := range tokens {
		if phone, ok := r.NormalizePhone(tok); ok {
			addrs = append(addrs, phone)
		} else {
			slog.Debug("Dropping invalid phone number", "token", tok)
		}
	}
	for _, m := range r.groupMembers(ctx, groups) {
		if phone, ok := r.NormalizePhone(m.Phone); ok {
			addrs = append(addrs, phone)
		}
	}
	return addrs
}

func (r *Resolver) groupMembers(ctx context.Context, groups []string) []domain.Member {
	if r.dir == nil {
		return nil
	}
	var members []domain.Member
	for _, g := range groups {
		if g == "" {
			continue
		}
		ms, err := r.dir.GroupMembers(ctx, g)
		if err != nil {
			slog.Warn("Failed to expand recipient group", "group_id", g, "error", err)
			continue
		}
		members = append(members, ms...)
	}
	return members
}

// NormalizePhone validates raw as a phone number and formats it as E.164.
func (r *Resolver) NormalizePhone(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	num, err := phonenumbers.Parse(raw, r.region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}

// IsReserved reports whether tok is one of the actor placeholder words.
func IsReserved(tok string) bool {
	return strings.EqualFold(tok, "trigger") || strings.EqualFold(tok, "receiver")
}

// Dedupe removes case-insensitive duplicates, keeping first occurrences.
func Dedupe(addrs []string) []string {
	seen := make(map[string]bool, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		key := strings.ToLower(a)
		if a == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
