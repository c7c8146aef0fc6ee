package names

import "testing"

func TestExtract(t *testing.T) {
	tests := []struct {
		in   string
		want Identity
	}{
		{"My name is Alice", Identity{FirstName: "alice"}},
		{"I'm Bob but call me Bobby", Identity{FirstName: "bob", PreferredName: "bobby"}},
		{"", Identity{FirstName: "there"}},
		{"   ", Identity{FirstName: "there"}},
		{"Hi, this is Carol Jones.", Identity{FirstName: "carol"}},
		{"my name is Robert, however I go by Rob", Identity{FirstName: "robert", PreferredName: "rob"}},
		{"Dave Smith", Identity{FirstName: "dave"}},
		{"Dave Smith but please call me Davey", Identity{FirstName: "dave", PreferredName: "davey"}},
		{"I am Erin", Identity{FirstName: "erin"}},
		{"I go by Frankie", Identity{FirstName: "frankie"}},
		{"I prefer to be called Gee", Identity{FirstName: "gee"}},
		{"You can call me Hank", Identity{FirstName: "hank"}},
		{"I’m Ivy", Identity{FirstName: "ivy"}},
		{"My name is Jo but", Identity{FirstName: "jo"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Extract(tt.in); got != tt.want {
				t.Errorf("Extract(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractTableOrderWins(t *testing.T) {
	// "this is" occurs first in the text but "i'm" precedes it in the table.
	got := Extract("Hello, this is Kate and I'm calling about the job")
	if got.FirstName != "calling" {
		t.Errorf("FirstName = %q, want table-order match %q", got.FirstName, "calling")
	}

	// "i am called" is listed before "i am".
	got = Extract("I am called Lou")
	if got.FirstName != "lou" {
		t.Errorf("FirstName = %q, want lou", got.FirstName)
	}
}

func TestExtractPhraseWithoutName(t *testing.T) {
	got := Extract("Well my name is")
	if got.FirstName != "well" {
		t.Errorf("FirstName = %q, want first word fallback", got.FirstName)
	}
}

func TestExtractDeterministic(t *testing.T) {
	in := "I'm Bob but call me Bobby"
	first := Extract(in)
	for i := 0; i < 10; i++ {
		if got := Extract(in); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestPatternsOrder(t *testing.T) {
	p := Patterns()
	index := func(phrase string) int {
		for i, s := range p {
			if s == phrase {
				return i
			}
		}
		t.Fatalf("phrase %q missing", phrase)
		return -1
	}
	if index("i'm") > index("you can call me") {
		t.Error("i'm must precede you can call me")
	}
	if index("i am called") > index("i am") {
		t.Error("i am called must precede i am")
	}
	if index("my name is") != 0 {
		t.Error("my name is must be first")
	}
}

func TestAddressName(t *testing.T) {
	if got := (Identity{FirstName: "bob", PreferredName: "bobby"}).AddressName(); got != "bobby" {
		t.Errorf("AddressName = %q", got)
	}
	if got := (Identity{FirstName: "bob"}).AddressName(); got != "bob" {
		t.Errorf("AddressName = %q", got)
	}
}
