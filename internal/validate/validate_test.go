package validate

import "testing"

func TestName(t *testing.T) {
	for _, ok := range []string{"My Project", "acme-prod", "app_2", "A"} {
		if err := Name("name", ok); err != nil {
			t.Fatalf("Name(%q) rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "   ", "-leading", "semi;colon", "emoji🙂"} {
		if err := Name("name", bad); err == nil {
			t.Fatalf("Name(%q) accepted", bad)
		}
	}
}

func TestEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "dev+tag@example.org"} {
		if err := Email(ok); err != nil {
			t.Fatalf("Email(%q) rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "plain", "a@", "Bob <bob@example.org>"} {
		if err := Email(bad); err == nil {
			t.Fatalf("Email(%q) accepted", bad)
		}
	}
}

func TestPassword(t *testing.T) {
	if err := Password("longenough"); err != nil {
		t.Fatalf("Password rejected: %v", err)
	}
	if err := Password("short"); err == nil {
		t.Fatal("short password accepted")
	}
}
