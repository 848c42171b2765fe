package querykeys

import (
	"strings"
	"testing"

	"github.com/villagehq/go-community-client/cache"
)

func TestDependencies_CoverEveryKind(t *testing.T) {
	kinds := []string{
		KindCommunity, KindMembership, KindEvent, KindAttendance,
		KindConversation, KindMessage, KindShoutout, KindThanks,
		KindProfile, KindSession,
	}

	table := Dependencies()
	for _, kind := range kinds {
		if len(table[kind]) == 0 {
			t.Errorf("kind %q has no invalidation dependencies", kind)
		}
	}
}

func TestKeys_PrefixIsolation(t *testing.T) {
	// Single-entity keys must not fall under list-view prefixes, or a list
	// invalidation would drop unrelated entries.
	tests := []struct {
		name   string
		key    string
		prefix string
	}{
		{"community vs communities", Community("c-1"), Communities()},
		{"event vs events", Event("e-1"), Events()},
		{"profile vs users", UserProfile("u-1"), Users()},
		{"community members vs communities", CommunityMembers("c-1"), Communities()},
		{"thanks vs shoutouts", ThanksList(nil), Shoutouts()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if strings.HasPrefix(tt.key, tt.prefix) {
				t.Errorf("key %q falls under prefix %q", tt.key, tt.prefix)
			}
		})
	}
}

func TestKeys_ListOptionsShareThePrefix(t *testing.T) {
	type opts struct {
		RootsOnly bool
	}

	keyed := CommunityList(opts{RootsOnly: true})
	if !strings.HasPrefix(keyed, Communities()+cache.KeySeparator) {
		t.Errorf("list key %q does not extend the %q prefix", keyed, Communities())
	}

	// The same options always serialize to the same key.
	if again := CommunityList(opts{RootsOnly: true}); again != keyed {
		t.Errorf("key not stable: %q vs %q", keyed, again)
	}
}

func TestMembershipMutation_ReachesBothSides(t *testing.T) {
	table := Dependencies()

	ref := cache.EntityRef{
		Kind:    KindMembership,
		ID:      "m-1",
		Related: map[string]string{"community": "c-1", "user": "u-1"},
	}

	var prefixes []string
	for _, pattern := range table[KindMembership] {
		if p := pattern(ref); p != "" {
			prefixes = append(prefixes, p)
		}
	}

	want := map[string]bool{
		Communities():           false,
		Community("c-1"):        false,
		CommunityMembers("c-1"): false,
		UserMemberships("u-1"):  false,
	}
	for _, p := range prefixes {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for prefix, seen := range want {
		if !seen {
			t.Errorf("membership mutation does not reach %q", prefix)
		}
	}
}
