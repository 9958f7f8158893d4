package ingest

import "testing"

func TestNormalizeAgentName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Wellington Silva - 6373", "WELLINGTON SILVA"},
		{"KLEBER JARENKO- 6372", "KLEBER JARENKO"},
		{"Ana Franco 63731", "ANA FRANCO"},
		{"  josé   ávila  ", "JOSE AVILA"},
		{"Conceição Gonçalves", "CONCEICAO GONCALVES"},
		{"Plain Name", "PLAIN NAME"},
		{" - 6373", ""},
	}

	for _, c := range cases {
		if got := NormalizeAgentName(c.in); got != c.want {
			t.Fatalf("NormalizeAgentName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeAgentName_SameAgentDifferentExtensions(t *testing.T) {
	a := NormalizeAgentName("Wellington Silva - 6373")
	b := NormalizeAgentName("wellington silva 6401")
	if a != b {
		t.Fatalf("expected one key for both spellings, got %q and %q", a, b)
	}
}

func TestNormalizeKey(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Telefone", "TELEFONE"},
		{"  e-mail ", "E-MAIL"},
		{"Chat   Web", "CHAT WEB"},
		{"ATENDIDA", "ATENDIDA"},
	}

	for _, c := range cases {
		if got := NormalizeKey(c.in); got != c.want {
			t.Fatalf("NormalizeKey(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDisplayAgentName(t *testing.T) {
	if got := DisplayAgentName("WELLINGTON SILVA"); got != "Wellington Silva" {
		t.Fatalf("got %q", got)
	}
	if got := DisplayAgentName("ANA"); got != "Ana" {
		t.Fatalf("got %q", got)
	}
}
