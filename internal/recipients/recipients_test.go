package recipients

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/domain"
)

type fakeDirectory struct {
	chatIDs map[string]string
	groups  map[string][]domain.Member
	chatErr error
	lookups int
}

func (f *fakeDirectory) ChatIDs(_ context.Context, memberIDs []string) (map[string]string, error) {
	f.lookups++
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	out := make(map[string]string)
	for _, id := range memberIDs {
		if v, ok := f.chatIDs[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeDirectory) GroupMembers(_ context.Context, groupID string) ([]domain.Member, error) {
	ms, ok := f.groups[groupID]
	if !ok {
		return nil, errors.New("group not found")
	}
	return ms, nil
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{
		chatIDs: map[string]string{"m1": "zalo-1", "m2": "ZALO-2", "m3": "zalo-2"},
		groups: map[string][]domain.Member{
			"board": {
				{ID: "m4", ChatID: "zalo-4", Phone: "0912345678"},
				{ID: "m5", Phone: "not-a-phone"},
			},
		},
	}
}

func TestResolver_Chat(t *testing.T) {
	r := NewResolver(newDirectory(), "")

	tests := []struct {
		name      string
		spec      string
		flattened map[string]string
		actor     domain.Actor
		want      []string
	}{
		{
			name: "member ids mapped, unmapped dropped",
			spec: "m1, unknown ,m2",
			want: []string{"zalo-1", "ZALO-2"},
		},
		{
			name: "case-insensitive de-dup",
			spec: "m2,m3",
			want: []string{"ZALO-2"},
		},
		{
			name:  "reserved words filtered and actor appended",
			spec:  "trigger, Receiver, m1",
			actor: domain.Actor{Chat: "zalo-9"},
			want:  []string{"zalo-1", "zalo-9"},
		},
		{
			name:  "actor already present",
			spec:  "m1",
			actor: domain.Actor{Chat: "ZALO-1"},
			want:  []string{"zalo-1"},
		},
		{
			name:      "payload key substituted",
			spec:      "approverId",
			flattened: map[string]string{"approverId": "m1"},
			want:      []string{"zalo-1"},
		},
		{
			name: "group expansion",
			spec: "group:board,m1",
			want: []string{"zalo-1", "zalo-4"},
		},
		{
			name: "unknown group skipped",
			spec: "group:nobody",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(context.Background(), domain.ChannelChatTemplate, tt.spec, tt.flattened, tt.actor)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_SMS(t *testing.T) {
	r := NewResolver(newDirectory(), "vn")

	tests := []struct {
		name      string
		spec      string
		flattened map[string]string
		actor     domain.Actor
		want      []string
	}{
		{
			name: "national numbers normalized",
			spec: "0901234567, +84 90 123 4567",
			want: []string{"+84901234567"},
		},
		{
			name: "invalid numbers dropped",
			spec: "12345,abc,0901234567",
			want: []string{"+84901234567"},
		},
		{
			name:      "payload key substituted",
			spec:      "phone",
			flattened: map[string]string{"phone": "0901234567"},
			want:      []string{"+84901234567"},
		},
		{
			name:  "actor phone appended",
			spec:  "receiver",
			actor: domain.Actor{Phone: "0912345678"},
			want:  []string{"+84912345678"},
		},
		{
			name: "group phones",
			spec: "group:board",
			want: []string{"+84912345678"},
		},
		{
			name: "international number kept",
			spec: "+1 650 253 0000",
			want: []string{"+16502530000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(context.Background(), domain.ChannelAggregatorSMS, tt.spec, tt.flattened, tt.actor)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolver_DirectoryError(t *testing.T) {
	dir := newDirectory()
	dir.chatErr = errors.New("db down")
	r := NewResolver(dir, "")

	got := r.Resolve(context.Background(), domain.ChannelChatTemplate, "m1", nil, domain.Actor{Chat: "zalo-9"})
	if !reflect.DeepEqual(got, []string{"zalo-9"}) {
		t.Errorf("Resolve() = %v, want only the actor", got)
	}
}

func TestResolver_HTTPChannel(t *testing.T) {
	r := NewResolver(newDirectory(), "")
	if got := r.Resolve(context.Background(), domain.ChannelGenericHTTP, "m1", nil, domain.Actor{}); got != nil {
		t.Errorf("Resolve() = %v, want nil", got)
	}
}

func TestResolver_NoMemberLookupWithoutTokens(t *testing.T) {
	dir := newDirectory()
	r := NewResolver(dir, "")
	r.Resolve(context.Background(), domain.ChannelChatTemplate, "trigger", nil, domain.Actor{Chat: "z"})
	if dir.lookups != 0 {
		t.Errorf("ChatIDs lookups = %d, want 0", dir.lookups)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"A", "", "a", "b", "B", "c"})
	want := []string{"A", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe() = %v, want %v", got, want)
	}
}
