// Package translit converts Cyrillic entity names into filesystem-safe
// ASCII using the GOST 7.79-2000 (system B) romanization table.
package translit

import "strings"

var gost779b = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d",
	'е': "e", 'ё': "yo", 'ж': "zh", 'з': "z", 'и': "i",
	'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n",
	'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t",
	'у': "u", 'ф': "f", 'х': "x", 'ц': "cz", 'ч': "ch",
	'ш': "sh", 'щ': "shh", 'ъ': "", 'ы': "y", 'ь': "",
	'э': "e", 'ю': "yu", 'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D",
	'Е': "E", 'Ё': "Yo", 'Ж': "Zh", 'З': "Z", 'И': "I",
	'Й': "J", 'К': "K", 'Л': "L", 'М': "M", 'Н': "N",
	'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T",
	'У': "U", 'Ф': "F", 'Х': "X", 'Ц': "Cz", 'Ч': "Ch",
	'Ш': "Sh", 'Щ': "Shh", 'Ъ': "", 'Ы': "Y", 'Ь': "",
	'Э': "E", 'Ю': "Yu", 'Я': "Ya",
}

var replacements = map[rune]string{
	'—': "-", '–': "-",
	'№': "N",
	'/': "_", ' ': "_",
}

// Name romanizes s and strips everything that is not safe in an object key.
// The result contains only characters from [A-Za-z0-9._-].
func Name(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		if mapped, ok := gost779b[r]; ok {
			out.WriteString(mapped)
			continue
		}
		if mapped, ok := replacements[r]; ok {
			out.WriteString(mapped)
			continue
		}
		if safe(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func safe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}
