package teams

// defaultAliases maps a normalized name to its canonical normalized form.
// Keys and values are already in Normalize output form.
var defaultAliases = map[string]string{
	// NBA
	"la lakers":           "los angeles lakers",
	"l a lakers":          "los angeles lakers",
	"la clippers":         "los angeles clippers",
	"l a clippers":        "los angeles clippers",
	"ny knicks":           "new york knicks",
	"gs warriors":         "golden state warriors",
	"okc thunder":         "oklahoma city thunder",
	"philadelphia sixers": "philadelphia 76ers",
	"sixers":              "philadelphia 76ers",
	"blazers":             "portland trail blazers",
	"portland blazers":    "portland trail blazers",
	"no pelicans":         "new orleans pelicans",
	"sa spurs":            "san antonio spurs",
	"atl":                 "atlanta hawks",
	"bos":                 "boston celtics",
	"bkn":                 "brooklyn nets",
	"cha":                 "charlotte hornets",
	"chi":                 "chicago bulls",
	"cle":                 "cleveland cavaliers",
	"dal":                 "dallas mavericks",
	"den":                 "denver nuggets",
	"det":                 "detroit pistons",
	"gsw":                 "golden state warriors",
	"hou":                 "houston rockets",
	"ind":                 "indiana pacers",
	"lac":                 "los angeles clippers",
	"lal":                 "los angeles lakers",
	"mem":                 "memphis grizzlies",
	"mia":                 "miami heat",
	"mil":                 "milwaukee bucks",
	"min":                 "minnesota timberwolves",
	"nop":                 "new orleans pelicans",
	"nyk":                 "new york knicks",
	"okc":                 "oklahoma city thunder",
	"orl":                 "orlando magic",
	"phi":                 "philadelphia 76ers",
	"phx":                 "phoenix suns",
	"por":                 "portland trail blazers",
	"sac":                 "sacramento kings",
	"sas":                 "san antonio spurs",
	"tor":                 "toronto raptors",
	"uta":                 "utah jazz",
	"was":                 "washington wizards",

	// NFL / NHL / MLB regional qualifiers
	"la rams":                  "los angeles rams",
	"la chargers":              "los angeles chargers",
	"ny giants":                "new york giants",
	"ny jets":                  "new york jets",
	"ny rangers":               "new york rangers",
	"ny islanders":             "new york islanders",
	"ny yankees":               "new york yankees",
	"ny mets":                  "new york mets",
	"la dodgers":               "los angeles dodgers",
	"la angels":                "los angeles angels",
	"la kings":                 "los angeles kings",
	"tb buccaneers":            "tampa bay buccaneers",
	"tb lightning":             "tampa bay lightning",
	"kc chiefs":                "kansas city chiefs",
	"sf 49ers":                 "san francisco 49ers",
	"sf giants":                "san francisco giants",
	"washington football team": "washington commanders",
	"utah hockey club":         "utah mammoth",

	// College nicknames
	"ole miss":            "mississippi",
	"ole miss rebels":     "mississippi rebels",
	"uconn":               "connecticut",
	"uconn huskies":       "connecticut huskies",
	"usc":                 "southern california",
	"usc trojans":         "southern california trojans",
	"ucf":                 "central florida",
	"ucf knights":         "central florida knights",
	"lsu":                 "louisiana state",
	"lsu tigers":          "louisiana state tigers",
	"byu":                 "brigham young",
	"byu cougars":         "brigham young cougars",
	"smu":                 "southern methodist",
	"smu mustangs":        "southern methodist mustangs",
	"tcu":                 "texas christian",
	"tcu horned frogs":    "texas christian horned frogs",
	"unlv":                "nevada las vegas",
	"unlv rebels":         "nevada las vegas rebels",
	"pitt":                "pittsburgh",
	"pitt panthers":       "pittsburgh panthers",
	"miami fl":            "miami",
	"miami fl hurricanes": "miami hurricanes",

	// Soccer
	"man united":           "manchester united",
	"man city":             "manchester city",
	"tottenham":            "tottenham hotspur",
	"wolves":               "wolverhampton wanderers",
	"wolverhampton":        "wolverhampton wanderers",
	"newcastle":            "newcastle united",
	"west ham":             "west ham united",
	"brighton":             "brighton and hove albion",
	"brighton hove albion": "brighton and hove albion",
	"nottm forest":         "nottingham forest",
	"nott m forest":        "nottingham forest",
	"leicester":            "leicester city",
	"ipswich":              "ipswich town",
}

// droppedTokens are filler words some sources append and others omit.
var droppedTokens = map[string]bool{
	"fc":  true,
	"afc": true,
	"cf":  true,
	"the": true,
}
