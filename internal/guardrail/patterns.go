package guardrail

import "regexp"

// Pattern lists are matched against Normalize(text): lowercase, accents
// stripped. Coverage is best effort; new phrasings will slip through, which
// is why the scope checks and the lexical validator never trust this layer
// alone.

var greetingPatterns = compileAll(
	`\b(bonjour|bonsoir|salut|coucou|wesh|salam)\b`,
	`\b(hello|hi|hey|good morning|good evening|good afternoon)\b`,
	`\b(merci|au revoir|bye|goodbye|a bientot|bonne journee|bonne soiree)\b`,
	`\b(thanks|thank you|see you)\b`,
	`\b(qui es-tu|tu es qui|what are you|who are you|comment tu t'appelles)\b`,
	`\b(presente-toi|tu sers a quoi|what can you do|tes capacites)\b`,
	`\b(help|aide|comment ca marche|how does this work|can you help)\b`,
)

var offTopicPatterns = compileAll(
	// weather
	`\b(meteo|weather|temperature|pluie|neige|forecast|canicule)\b`,
	`(quel temps|il fait (beau|chaud|froid))`,
	// jokes and entertainment
	`\b(blague|joke|humour|funny|devinette|poeme|riddle)\b`,
	`\b(film|serie|musique|chanson|netflix|spotify|concert|album)\b`,
	`\b(jeu video|gaming|playstation|xbox|nintendo|manga|anime)\b`,
	// food
	`\b(recette|recipe|cuisine|ingredient|restaurant|dessert|patisserie)\b`,
	// programming
	`\b(python|javascript|typescript|react|angular|golang|rust|kotlin)\b`,
	`\b(programmer|coder|framework|github|gitlab|algorithme|algorithm|debug)\b`,
	// politics and news
	`\b(politique|politics|election|president|gouvernement|government|parlement)\b`,
	`\b(actualite|nouvelles|journal|presse|breaking news)\b`,
	// sport
	`\b(football|tennis|rugby|natation|marathon|olympique|olympics|championnat)\b`,
	`\b(coupe du monde|world cup|fifa|uefa|nba)\b`,
	// travel
	`\b(voyage|vacance|vacation|hotel|avion|flight|tourisme|croisiere)\b`,
	// health
	`\b(sante|medecin|doctor|maladie|symptome|hopital|pharmacie|vaccin)\b`,
	// animals
	`\b(animaux|chien|oiseau|hamster|veterinaire|zoo|aquarium)\b`,
	// science and general knowledge
	`\b(capitale|population|planete|galaxie|quantique|dinosaure|adn)\b`,
	`\b(mathematique|physique|chimie|biologie|equation)\b`,
	// religion, astrology, relationships
	`\b(religion|dieu|eglise|mosquee|priere|bible|coran)\b`,
	`\b(horoscope|astrologie|zodiaque|tarot|voyance)\b`,
	`\b(amour|couple|mariage|divorce|tinder|dating)\b`,
	// consumer tech, finance, housing, vehicles
	`\b(smartphone|iphone|android|tablette|wifi|bluetooth|tiktok|instagram)\b`,
	`\b(bitcoin|crypto|bourse|trading|epargne|hypotheque|retraite)\b`,
	`\b(immobilier|appartement|loyer|demenagement)\b`,
	`\b(voiture|automobile|moto|permis de conduire|essence|diesel)\b`,
)

var injectionPatterns = compileAll(
	// destructive SQL keywords
	`\b(drop|delete|update|insert|alter|truncate|grant|revoke)\b`,
	`\b(create|rename|merge|upsert)\b`,
	`\b(exec|execute|xp_|sp_)\b`,
	`\b(shutdown|kill|backup|restore)\b`,
	// comment and metacharacter injection
	`(--|;|/\*|\*/|@@|#\s)`,
	`(char\(|nchar\(|varchar\(|concat\(|hex\(|unhex\()`,
	`(0x[0-9a-f]+)`,
	// union based
	`\bunion\b.*\bselect\b`,
	`\bunion\s+all\b`,
	// boolean based
	`\bor\b\s+\d+\s*=\s*\d+`,
	`\band\b\s+\d+\s*=\s*\d+`,
	`\bor\b\s+['"].*['"]\s*=\s*['"]`,
	`\bor\b\s+true\b`,
	// time based
	`\b(sleep|waitfor|benchmark|pg_sleep)\b`,
	// system tables
	`\b(pg_catalog|pg_shadow|pg_roles|pg_user|pg_tables)\b`,
	`\b(information_schema|sysobjects|syscolumns)\b`,
	// file operations
	`\b(load_file|into\s+outfile|into\s+dumpfile|copy\s+to|copy\s+from)\b`,
	// destructive intent in french
	`\b(supprimer?z?|effacer?z?|detruire|detruis|purger?z?|viderz?)\b`,
	`\b(modifier?z?|editer?z?|mettre a jour|mise a jour)\b`,
	`\b(ajouter?z?|inserer?z?|creer|renommer?z?|remplacer?z?|ecraser?z?)\b`,
	`\b(reinitialiser?z?|reset|enlever?z?|retirer?z?|restaurer?z?|migrer?z?)\b`,
)

var promptManipulationPatterns = compileAll(
	// instruction override, french
	`ignorez?\s+(tes|les|mes|ces)\s+instructions`,
	`oubliez?\s+(tes|les|mes|ces)\s+instructions`,
	`ne\s+(tiens?|tenez)\s+pas\s+compte`,
	`fais\s+comme\s+si|fais\s+semblant`,
	// instruction override, english
	`ignore\s+(previous|all|your|the)\s+instructions?`,
	`forget\s+(your|all|previous)\s+instructions?`,
	`disregard\s+(your|all|previous)`,
	// role switching
	`tu\s+es\s+maintenant|agis\s+comme|joue\s+le\s+role`,
	`you\s+are\s+now|act\s+as|pretend\s+(you are|to be)`,
	`your\s+new\s+(role|purpose)|ton\s+nouveau\s+role`,
	`role[- ]?play`,
	// jailbreak
	`\b(jailbreak|bypass|contourner?z?|exploit)\b`,
	`\bdo anything now\b`,
	`(developer\s+mode|mode\s+developpeur|god\s+mode|admin\s+mode)`,
	`(no\s+restrictions?|sans\s+restrictions?|sans\s+limites?)`,
	`\b(unrestricted|unfiltered|uncensored)\b`,
	// system prompt access
	`(system\s+prompt|prompt\s+systeme|instructions?\s+systeme)`,
	`montrez?\s+(tes|les)\s+(instructions|regles|consignes)`,
	`show\s+(me\s+)?(your|the)\s+(prompt|instructions|rules)`,
	`reveal\s+(your|the)\s+(prompt|instructions|system)`,
	// chat template markers
	`(\[system\]|\[inst\]|\[/inst\]|<<sys>>|<\|im_start\|>)`,
	`###\s*(system|human|assistant|instruction)`,
	// override language
	`\b(override|outrepasser?z?|surcharger?z?)\b`,
	`(priorite\s+maximale|highest\s+priority|urgent\s+override)`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		patterns = append(patterns, regexp.MustCompile(expr))
	}
	return patterns
}
