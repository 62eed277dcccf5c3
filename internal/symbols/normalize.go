package symbols

import "strings"

// Textual conditioning applied after demangling so that the same logical
// signature normalizes identically no matter which compiler produced the
// library. Replacements are applied in order.

var itaniumReplacements = [][2]string{
	{"std::__cxx11::basic_string<char, std::char_traits<char>, std::allocator<char> >", "std::string"},
	{"std::basic_string<char, std::char_traits<char>, std::allocator<char> >", "std::string"},
	{"[abi:cxx11]", ""},
	{"std::map<std::string, unsigned int, std::less<std::string >, std::allocator<std::pair<std::string const, unsigned int> > > const&",
		"xrt::hw_context::cfg_param_type const&"},
	{"std::map<std::string, unsigned int, std::less<std::string>, std::allocator<std::pair<std::string const, unsigned int> > > const&",
		"xrt::hw_context::cfg_param_type const&"},
	{") const", ")"},
}

var msvcReplacements = [][2]string{
	{"class std::basic_string<char,struct std::char_traits<char>,class std::allocator<char> >", "std::string"},
	{"const ", "const"},
	{"class ", ""},
	{",", ", "},
	{")const", ") const"},
	{"__int64", "long"},
	{"(void)", "()"},
	{"enum ", ""},
	{"struct std::ratio<1, 1000>", "std::ratio<1l, 1000l>"},
}

// NormalizeItanium collapses libstdc++/GCC spelling differences in a
// demangled signature.
func NormalizeItanium(sig string) string {
	return replaceAll(sig, itaniumReplacements)
}

// NormalizeMSVC collapses MSVC undecoration spellings (class/enum keywords,
// comma spacing, __int64, void parameter lists) into the same canonical form
// the Itanium path produces.
func NormalizeMSVC(sig string) string {
	return replaceAll(sig, msvcReplacements)
}

func replaceAll(s string, replacements [][2]string) string {
	for _, r := range replacements {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	return s
}
