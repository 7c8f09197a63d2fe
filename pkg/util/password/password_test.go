package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/oveliahealth/ovelia_backend/config"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash not in PHC form: %s", hash)
	}

	if err := Verify(hash, "correct horse battery staple"); err != nil {
		t.Errorf("Verify with right password: %v", err)
	}
	if err := Verify(hash, "wrong password"); !errors.Is(err, ErrMismatch) {
		t.Errorf("Verify with wrong password = %v, want ErrMismatch", err)
	}
}

func TestHashIsSalted(t *testing.T) {
	a, err := Hash("même mot de passe")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash("même mot de passe")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password are identical")
	}
}

func TestHashWithParams(t *testing.T) {
	p := &Params{Memory: 16 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	hash, err := HashWithParams("un secret", p)
	if err != nil {
		t.Fatalf("HashWithParams: %v", err)
	}
	if !strings.Contains(hash, "m=16384,t=2,p=1") {
		t.Errorf("hash does not record the requested params: %s", hash)
	}
	if err := Verify(hash, "un secret"); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want error
	}{
		{"empty string", "", ErrInvalidHash},
		{"not a hash at all", "hunter2", ErrInvalidHash},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA", ErrInvalidHash},
		{"future version", "$argon2id$v=99$m=65536,t=3,p=2$c2FsdA$aGFzaA", ErrIncompatibleVersion},
		{"corrupt salt", "$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA", ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Verify(tt.hash, "whatever"); !errors.Is(err, tt.want) {
				t.Errorf("Verify = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	current := DefaultParams()

	hash, err := HashWithParams("un secret", current)
	if err != nil {
		t.Fatalf("HashWithParams: %v", err)
	}
	if NeedsRehash(hash, current) {
		t.Error("fresh hash reported as needing a rehash")
	}
	if NeedsRehash(hash, nil) {
		t.Error("nil target params should compare against defaults")
	}

	stronger := *current
	stronger.Iterations++
	if !NeedsRehash(hash, &stronger) {
		t.Error("hash with fewer iterations should need a rehash")
	}

	if !NeedsRehash("not-a-hash", current) {
		t.Error("unparseable hash should need a rehash")
	}
}

func TestParamsFromConfig(t *testing.T) {
	t.Run("empty section keeps defaults", func(t *testing.T) {
		got := ParamsFromConfig(config.PasswordConfig{})
		want := DefaultParams()
		if *got != *want {
			t.Errorf("got %+v, want %+v", got, want)
		}
	})

	t.Run("set fields override", func(t *testing.T) {
		got := ParamsFromConfig(config.PasswordConfig{MemoryKiB: 128 * 1024, Iterations: 4})
		if got.Memory != 128*1024 || got.Iterations != 4 {
			t.Errorf("overrides not applied: %+v", got)
		}
		if got.Parallelism != DefaultParams().Parallelism {
			t.Errorf("unset field lost its default: %+v", got)
		}
	})

	t.Run("low memory mode clamps and compensates", func(t *testing.T) {
		got := ParamsFromConfig(config.PasswordConfig{LowMemoryMode: true})
		if got.Memory != 32*1024 {
			t.Errorf("memory = %d, want %d", got.Memory, 32*1024)
		}
		if got.Iterations != DefaultParams().Iterations+1 {
			t.Errorf("iterations = %d, want %d", got.Iterations, DefaultParams().Iterations+1)
		}
	})
}
