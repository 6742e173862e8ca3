package translator

type partOfSpeech int

const (
	posUnknown partOfSpeech = iota
	posNoun
	posVerb
	posAdj
	posArticle
)

type gender byte

const (
	masculine gender = 'm'
	feminine  gender = 'f'
	neuter    gender = 'n'
)

type entry struct {
	pos    partOfSpeech
	tr     string
	gender gender
	plural bool
	// adjective forms keyed by gender; plural uses pluralForm
	forms      map[gender]string
	pluralForm string
}

func noun(tr string, g gender, plural bool) entry {
	return entry{pos: posNoun, tr: tr, gender: g, plural: plural}
}

func verb(tr string) entry {
	return entry{pos: posVerb, tr: tr}
}

func adj(m, f, n, p string) entry {
	return entry{pos: posAdj, forms: map[gender]string{masculine: m, feminine: f, neuter: n}, pluralForm: p}
}

var lexicon = map[string]entry{
	"boy":    noun("мальчик", masculine, false),
	"boys":   noun("мальчики", masculine, true),
	"girl":   noun("девочка", feminine, false),
	"girls":  noun("девочки", feminine, true),
	"cat":    noun("кот", masculine, false),
	"cats":   noun("коты", masculine, true),
	"book":   noun("книга", feminine, false),
	"books":  noun("книги", feminine, true),
	"apple":  noun("яблоко", neuter, false),
	"apples": noun("яблоки", neuter, true),

	"reads": verb("читает"),
	"read":  verb("читают"),
	"eats":  verb("ест"),
	"eat":   verb("едят"),
	"sees":  verb("видит"),
	"see":   verb("видят"),

	"big":   adj("большой", "большая", "большое", "большие"),
	"small": adj("маленький", "маленькая", "маленькое", "маленькие"),
	"red":   adj("красный", "красная", "красное", "красные"),
	"green": adj("зелёный", "зелёная", "зелёное", "зелёные"),

	"the": {pos: posArticle},
	"a":   {pos: posArticle},
	"an":  {pos: posArticle},
}
