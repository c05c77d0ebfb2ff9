package visibility

import "testing"

func TestLevelOrder(t *testing.T) {
	if !(Level(Public) < Level(Private) && Level(Private) < Level(Protected)) {
		t.Fatalf("expected public < private < protected, got %d, %d, %d",
			Level(Public), Level(Private), Level(Protected))
	}
}

func TestCanAttachAllCombinations(t *testing.T) {
	cases := []struct {
		question Visibility
		test     Visibility
		want     bool
	}{
		{Public, Public, true},
		{Public, Private, true},
		{Public, Protected, true},
		{Private, Public, false},
		{Private, Private, true},
		{Private, Protected, true},
		{Protected, Public, false},
		{Protected, Private, false},
		{Protected, Protected, true},
	}

	for _, tc := range cases {
		if got := CanAttach(tc.question, tc.test); got != tc.want {
			t.Errorf("CanAttach(%s question, %s test) = %v, want %v",
				tc.question, tc.test, got, tc.want)
		}
	}
}

func TestCanAttachRejectsUnknownLevels(t *testing.T) {
	if CanAttach("internal", Protected) {
		t.Error("unknown question visibility must never be attachable")
	}
	if CanAttach(Public, "") {
		t.Error("unknown test visibility must never accept questions")
	}
}

func TestValid(t *testing.T) {
	for _, v := range []Visibility{Public, Private, Protected} {
		if !v.Valid() {
			t.Errorf("%s should be valid", v)
		}
	}
	for _, v := range []Visibility{"", "PUBLIC", "hidden"} {
		if v.Valid() {
			t.Errorf("%q should not be valid", v)
		}
	}
}
