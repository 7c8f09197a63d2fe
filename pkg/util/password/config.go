package password

import "github.com/oveliahealth/ovelia_backend/config"

// ParamsFromConfig builds hashing params from the central config section.
// Unset fields keep their defaults, so an empty section behaves exactly
// like DefaultParams. LowMemoryMode caps memory at 32 MiB for small
// deployments and adds an iteration to compensate.
func ParamsFromConfig(c config.PasswordConfig) *Params {
	p := DefaultParams()

	if c.MemoryKiB > 0 {
		p.Memory = c.MemoryKiB
	}
	if c.Iterations > 0 {
		p.Iterations = c.Iterations
	}
	if c.Parallelism > 0 {
		p.Parallelism = c.Parallelism
	}
	if c.SaltLength > 0 {
		p.SaltLength = c.SaltLength
	}
	if c.KeyLength > 0 {
		p.KeyLength = c.KeyLength
	}

	if c.LowMemoryMode && p.Memory > 32*1024 {
		p.Memory = 32 * 1024
		p.Iterations++
	}

	return p
}
