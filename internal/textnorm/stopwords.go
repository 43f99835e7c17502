package textnorm

// Stopword tables are stored in de-accented form because lookups
// happen on normalized tokens.

// generalStopwords is the standard Portuguese stopword list (articles,
// pronouns, prepositions, auxiliary verb forms).
var generalStopwords = []string{
	"a", "o", "e", "de", "da", "do", "das", "dos", "em", "no", "na",
	"nos", "nas", "um", "uma", "uns", "umas", "para", "por", "pelo",
	"pela", "pelos", "pelas", "com", "sem", "sob", "sobre", "ao",
	"aos", "as", "que", "se", "seu", "sua", "seus", "suas", "meu",
	"minha", "meus", "minhas", "nosso", "nossa", "nossos", "nossas",
	"dele", "dela", "deles", "delas", "ele", "ela", "eles", "elas",
	"eu", "tu", "isso", "isto", "aquilo", "esse", "essa", "esses",
	"essas", "este", "esta", "estes", "estas", "aquele", "aquela",
	"aqueles", "aquelas", "me", "te", "lhe", "lhes", "ja", "nao",
	"sim", "mas", "como", "onde", "quem", "qual", "quais", "ser",
	"estar", "ter", "sou", "sao", "foi", "era", "eram", "estou",
	"estao", "estava", "estavam", "fui", "for", "seja", "sejam",
	"sera", "serao", "tem", "tinha", "tinham", "teve", "tendo",
	"sendo", "sido", "ha", "ate", "apos", "entre", "contra", "desde",
	"durante", "nem", "ou", "pois",
}

// domainStopwords enumerates terms that carry no sentiment signal in
// gym feedback: temporal words, quantifiers, generic-opinion words,
// fillers, connectives and vocatives.
var domainStopwords = []string{
	// temporal
	"hoje", "ontem", "amanha", "agora", "sempre", "nunca", "cedo",
	"tarde", "antes", "depois", "dia", "dias", "semana", "semanas",
	"mes", "meses", "ano", "anos", "hora", "horas", "vez", "vezes",
	"quando",
	// quantifiers
	"muito", "muita", "muitos", "muitas", "pouco", "pouca", "poucos",
	"poucas", "mais", "menos", "todo", "toda", "todos", "todas",
	"tudo", "nada", "algum", "alguma", "alguns", "algumas", "varios",
	"varias", "bastante", "demais", "quase", "tanto", "tao",
	// generic opinion
	"coisa", "coisas", "acho", "achei", "acha", "parece", "pareceu",
	"opiniao", "geral",
	// fillers
	"pra", "pro", "aqui", "ali", "la", "ne", "ta", "tipo", "cara",
	"assim", "enfim", "tal", "ainda", "mesmo", "mesma", "so", "entao",
	// connectives
	"porque", "porem", "entretanto", "contudo", "portanto", "embora",
	"apesar", "alem", "tambem", "desse", "dessa", "disso", "deste",
	"desta", "disto", "nesse", "nessa", "nisso", "neste", "nesta",
	"nisto",
	// vocatives
	"voce", "voces", "galera", "pessoal", "gente", "povo", "amigo",
	"amiga", "senhor", "senhora",
}
