package markdowncmd

// FeatureGates exposes runtime toggles read by the import handler. Callers
// supply closures over Config.Features.Import so handlers stay decoupled from
// configuration.
type FeatureGates struct {
	ImportEnabled func() bool
}

func (g FeatureGates) importEnabled() bool {
	if g.ImportEnabled == nil {
		return true
	}
	return g.ImportEnabled()
}
