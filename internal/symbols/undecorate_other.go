//go:build !windows

package symbols

// Off Windows the PE strategy is only used for offline image inspection;
// MinGW-built images carry Itanium-mangled imports, which the regular
// demangler handles. Anything else is skipped as a per-symbol soft failure.

func platformDemangler() Demangler {
	return ItaniumDemangler
}

func platformNormalizer() func(string) string {
	return NormalizeItanium
}
