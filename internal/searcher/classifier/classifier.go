// Package classifier tags a search query with the documentation domains,
// intents and complexity level it most likely refers to. Detection is plain
// keyword membership over declarative tables, so several tags can apply at
// once.
package classifier

import (
	"strings"
	"unicode"
)

type Tag string

// Domain tags.
const (
	TagHR            Tag = "hr"
	TagSales         Tag = "sales"
	TagPurchase      Tag = "purchase"
	TagInventory     Tag = "inventory"
	TagAccounting    Tag = "accounting"
	TagProject       Tag = "project"
	TagManufacturing Tag = "manufacturing"
	TagWebsite       Tag = "website"
	TagCRM           Tag = "crm"
)

// Intent tags.
const (
	TagConfiguration   Tag = "configuration"
	TagDevelopment     Tag = "development"
	TagInstallation    Tag = "installation"
	TagUsage           Tag = "usage"
	TagTroubleshooting Tag = "troubleshooting"
	TagReporting       Tag = "reporting"
)

// Complexity tags.
const (
	TagTechnical Tag = "technical"
	TagBeginner  Tag = "beginner"
)

// TagGeneral is returned when nothing else matches.
const TagGeneral Tag = "general"

// Rule assigns Tag when any of Keywords occurs in the query.
type Rule struct {
	Tag      Tag
	Keywords []string
}

var DomainRules = []Rule{
	{TagHR, []string{"hr", "rh", "employee", "employé", "employe", "congé", "conge", "leave", "time off", "absence",
		"payroll", "paie", "salaire", "timesheet", "feuille de temps", "recruitment", "recrutement", "appraisal",
		"attendance", "présence", "expense", "dépense", "note de frais", "contract", "contrat"}},
	{TagSales, []string{"sale", "vente", "quotation", "devis", "sales order", "bon de commande client",
		"pricelist", "liste de prix", "discount", "remise", "upsell"}},
	{TagPurchase, []string{"purchase", "achat", "vendor", "fournisseur", "supplier", "rfq",
		"request for quotation", "demande de prix", "purchase order"}},
	{TagInventory, []string{"inventory", "inventaire", "stock", "warehouse", "entrepôt", "entrepot",
		"delivery", "livraison", "picking", "lot", "serial", "numéro de série", "route", "replenish", "réassort"}},
	{TagAccounting, []string{"accounting", "comptabilité", "comptabilite", "invoice", "facture", "payment",
		"paiement", "journal", "tax", "taxe", "tva", "vat", "bank", "banque", "reconcil", "rapprochement",
		"fiscal", "ledger", "grand livre"}},
	{TagProject, []string{"project", "projet", "task", "tâche", "tache", "milestone", "jalon", "kanban", "gantt"}},
	{TagManufacturing, []string{"manufactur", "fabrication", "production", "bom", "bill of materials",
		"nomenclature", "work order", "ordre de travail", "workcenter", "mrp"}},
	{TagWebsite, []string{"website", "site web", "ecommerce", "e-commerce", "blog", "webpage", "page web",
		"shop", "boutique", "seo", "forum"}},
	{TagCRM, []string{"crm", "lead", "piste", "opportunit", "pipeline", "prospect"}},
}

var IntentRules = []Rule{
	{TagConfiguration, []string{"configur", "config", "setting", "paramètre", "parametre", "setup",
		"set up", "activate", "activer", "enable"}},
	{TagDevelopment, []string{"develop", "développ", "code", "python", "xml", "module", "custom field",
		"inherit", "override", "model", "controller", "orm", "qweb"}},
	{TagInstallation, []string{"install", "deploy", "déploi", "upgrade", "mise à jour", "migration", "migrate",
		"docker", "odoo.sh", "on-premise", "source install"}},
	{TagUsage, []string{"how to", "how do", "comment", "utiliser", "create", "créer", "use", "manage", "gérer"}},
	{TagTroubleshooting, []string{"error", "erreur", "issue", "problem", "problème", "not working",
		"ne fonctionne pas", "bug", "fail", "échec", "fix", "cannot", "can't", "impossible", "missing"}},
	{TagReporting, []string{"report", "rapport", "dashboard", "tableau de bord", "analysis", "analyse",
		"statistic", "statistique", "kpi", "pivot", "graph"}},
}

var ComplexityRules = []Rule{
	{TagTechnical, []string{"api", "python", "xml", "json", "rpc", "xmlrpc", "jsonrpc", "sql", "orm", "code",
		"endpoint", "webhook", "script", "odoo.sh", "server action", "cron", "field", "champ technique"}},
	{TagBeginner, []string{"what is", "qu'est-ce", "qu est-ce", "how do i", "how to", "comment", "getting started",
		"démarrer", "beginner", "débutant", "introduction", "basics", "bases", "first step", "premiers pas",
		"where is", "où"}},
}

// Classify returns every tag whose keyword table matches query, or
// [TagGeneral] when none do. Tags are ordered domain, intent, complexity.
func Classify(query string) []Tag {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	words := splitWords(q)

	tags := make([]Tag, 0, 4)
	for _, rules := range [][]Rule{DomainRules, IntentRules, ComplexityRules} {
		for _, rule := range rules {
			if matchesAny(q, words, rule.Keywords) {
				tags = append(tags, rule.Tag)
			}
		}
	}
	if len(tags) == 0 {
		return []Tag{TagGeneral}
	}
	return tags
}

// Has reports whether tag is in tags.
func Has(tags []Tag, tag Tag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// matchesAny applies the three keyword shapes: multi-word keywords are
// substrings of the query, keywords longer than three characters prefix a
// query word, and short keywords must equal a whole word.
func matchesAny(query string, words []string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.ContainsAny(kw, " '") {
			if strings.Contains(query, kw) {
				return true
			}
			continue
		}
		short := len([]rune(kw)) <= 3
		for _, w := range words {
			if w == kw || (!short && strings.HasPrefix(w, kw)) {
				return true
			}
		}
	}
	return false
}

// splitWords keeps inner dots and hyphens so "odoo.sh" and "e-commerce"
// stay whole.
func splitWords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-'
	})
	words := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, ".-"); f != "" {
			words = append(words, f)
		}
	}
	return words
}
