package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

// fakeStore serves fixed rows and counts bulk loads per kind.
type fakeStore struct {
	rules    []domain.TriggerRule
	rulesErr error
	chats    map[string]domain.ChatTemplate
	contents map[string]domain.ContentTemplate
	smss     map[string]domain.SMSTemplate
	https    map[string]domain.HTTPTemplate
	smsErr   error
	calls    map[string]int
	lastIDs  map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: map[string]int{}, lastIDs: map[string][]string{}}
}

func (f *fakeStore) GetActiveRulesByEvent(_ context.Context, eventName string) ([]domain.TriggerRule, error) {
	f.calls["rules"]++
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	var out []domain.TriggerRule
	for _, r := range f.rules {
		if r.EventName == eventName && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func pick[T any](src map[string]T, ids []string) map[string]T {
	out := make(map[string]T)
	for _, id := range ids {
		if v, ok := src[id]; ok {
			out[id] = v
		}
	}
	return out
}

func (f *fakeStore) GetChatTemplates(_ context.Context, ids []string) (map[string]domain.ChatTemplate, error) {
	f.calls["chat"]++
	f.lastIDs["chat"] = ids
	return pick(f.chats, ids), nil
}

func (f *fakeStore) GetContentTemplates(_ context.Context, ids []string) (map[string]domain.ContentTemplate, error) {
	f.calls["content"]++
	f.lastIDs["content"] = ids
	return pick(f.contents, ids), nil
}

func (f *fakeStore) GetSMSTemplates(_ context.Context, ids []string) (map[string]domain.SMSTemplate, error) {
	f.calls["sms"]++
	if f.smsErr != nil {
		return nil, f.smsErr
	}
	return pick(f.smss, ids), nil
}

func (f *fakeStore) GetHTTPTemplates(_ context.Context, ids []string) (map[string]domain.HTTPTemplate, error) {
	f.calls["http"]++
	return pick(f.https, ids), nil
}

func TestResolver_Resolve(t *testing.T) {
	store := newFakeStore()
	store.rules = []domain.TriggerRule{
		{ID: "r1", EventName: "MemberApproved", ChannelType: domain.ChannelChatTemplate, TemplateRefID: "c1", IsActive: true},
		{ID: "r2", EventName: "MemberApproved", ChannelType: domain.ChannelChatTemplate, TemplateRefID: "c1", IsActive: true},
		{ID: "r3", EventName: "MemberApproved", ChannelType: domain.ChannelAggregatorSMS, TemplateRefID: "s1", IsActive: true},
		{ID: "r4", EventName: "MemberApproved", ChannelType: domain.ChannelGenericHTTP, TemplateRefID: "h-missing", IsActive: true},
		{ID: "r5", EventName: "MemberApproved", ChannelType: domain.ChannelGenericHTTP, TemplateRefID: "h1", IsActive: false},
		{ID: "r6", EventName: "OrderPaid", ChannelType: domain.ChannelGenericHTTP, TemplateRefID: "h1", IsActive: true},
	}
	store.chats = map[string]domain.ChatTemplate{"c1": {ID: "c1", TemplateID: "t1"}}
	store.contents = map[string]domain.ContentTemplate{"t1": {ID: "t1", Body: `{"text":"Hi {name}"}`}}
	store.smss = map[string]domain.SMSTemplate{"s1": {ID: "s1", TemplateCode: "WELCOME"}}
	store.https = map[string]domain.HTTPTemplate{"h1": {ID: "h1", Method: "POST"}}

	got, err := NewResolver(store).Resolve(context.Background(), "MemberApproved")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("Resolve() returned %d rules, want 4", len(got))
	}

	wantTemplate := map[string]bool{"r1": true, "r2": true, "r3": true, "r4": false}
	for _, rr := range got {
		if rr.HasTemplate() != wantTemplate[rr.Rule.ID] {
			t.Errorf("rule %s HasTemplate() = %v, want %v", rr.Rule.ID, rr.HasTemplate(), wantTemplate[rr.Rule.ID])
		}
	}
	if got[0].Content == nil || got[0].Content.Body != `{"text":"Hi {name}"}` {
		t.Errorf("chat rule content = %+v, want body from t1", got[0].Content)
	}

	for _, kind := range []string{"chat", "content", "sms", "http"} {
		if store.calls[kind] != 1 {
			t.Errorf("%s loads = %d, want 1", kind, store.calls[kind])
		}
	}
	if len(store.lastIDs["chat"]) != 1 {
		t.Errorf("chat ids = %v, want de-duplicated single id", store.lastIDs["chat"])
	}
}

func TestResolver_MissingContentTemplate(t *testing.T) {
	store := newFakeStore()
	store.rules = []domain.TriggerRule{
		{ID: "r1", EventName: "E", ChannelType: domain.ChannelChatTemplate, TemplateRefID: "c1", IsActive: true},
	}
	store.chats = map[string]domain.ChatTemplate{"c1": {ID: "c1", TemplateID: "gone"}}

	got, err := NewResolver(store).Resolve(context.Background(), "E")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(got) != 1 || got[0].HasTemplate() {
		t.Errorf("Resolve() = %+v, want one rule without template", got)
	}
}

func TestResolver_TemplateLoadErrorIsolated(t *testing.T) {
	store := newFakeStore()
	store.rules = []domain.TriggerRule{
		{ID: "r1", EventName: "E", ChannelType: domain.ChannelAggregatorSMS, TemplateRefID: "s1", IsActive: true},
		{ID: "r2", EventName: "E", ChannelType: domain.ChannelGenericHTTP, TemplateRefID: "h1", IsActive: true},
	}
	store.smsErr = errors.New("timeout")
	store.https = map[string]domain.HTTPTemplate{"h1": {ID: "h1"}}

	got, err := NewResolver(store).Resolve(context.Background(), "E")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got[0].HasTemplate() || !got[1].HasTemplate() {
		t.Errorf("HasTemplate() = %v, %v, want false, true", got[0].HasTemplate(), got[1].HasTemplate())
	}
}

func TestResolver_RuleLoadError(t *testing.T) {
	store := newFakeStore()
	store.rulesErr = errors.New("connection reset")

	if _, err := NewResolver(store).Resolve(context.Background(), "E"); err == nil {
		t.Error("Resolve() should fail when rules cannot be loaded")
	}
}

func TestResolver_NoRulesSkipsTemplateLoads(t *testing.T) {
	store := newFakeStore()

	got, err := NewResolver(store).Resolve(context.Background(), "Nothing")
	if err != nil || len(got) != 0 {
		t.Fatalf("Resolve() = %v, %v, want empty", got, err)
	}
	if store.calls["chat"]+store.calls["sms"]+store.calls["http"] != 0 {
		t.Errorf("template loads = %v, want none", store.calls)
	}
}

func TestResolvedRule_ParamMapping(t *testing.T) {
	rr := ResolvedRule{
		Rule: domain.TriggerRule{ChannelType: domain.ChannelAggregatorSMS},
		SMS:  &domain.SMSTemplate{ParamMapping: `[{"paramName":"amount","sourceKey":"amount","defaultValue":0}]`},
	}
	specs := rr.ParamMapping()
	if len(specs) != 1 || specs[0].ParamName != "amount" {
		t.Errorf("ParamMapping() = %+v", specs)
	}

	if (ResolvedRule{}).ParamMapping() != nil {
		t.Error("ParamMapping() without template should be nil")
	}
}
