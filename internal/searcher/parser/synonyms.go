package parser

import "strings"

// synonymGroups lists French and English terms for the same support topic.
// Every member of a group expands to every other member.
var synonymGroups = [][]string{
	{"congé", "congés", "conge", "conges", "leave", "leaves", "time off", "absence", "vacation", "holiday"},
	{"employé", "employés", "employe", "employee", "employees", "salarié", "staff"},
	{"paie", "payroll", "salaire", "salary", "payslip", "fiche de paie"},
	{"facture", "factures", "invoice", "invoices", "invoicing", "facturation", "billing"},
	{"client", "clients", "customer", "customers"},
	{"fournisseur", "fournisseurs", "vendor", "vendors", "supplier", "suppliers"},
	{"achat", "achats", "purchase", "purchases", "purchasing"},
	{"vente", "ventes", "sale", "sales"},
	{"stock", "inventaire", "inventory", "warehouse", "entrepôt", "entrepot"},
	{"devis", "quotation", "quotations", "quote"},
	{"commande", "commandes", "order", "orders"},
	{"projet", "projets", "project", "projects"},
	{"tâche", "tâches", "tache", "taches", "task", "tasks"},
	{"comptabilité", "comptabilite", "accounting", "compta"},
	{"paiement", "paiements", "payment", "payments"},
	{"rapport", "rapports", "report", "reports", "reporting"},
	{"configuration", "configurer", "paramètres", "parametres", "settings", "configure", "setup"},
	{"utilisateur", "utilisateurs", "user", "users"},
	{"produit", "produits", "product", "products"},
	{"fabrication", "production", "manufacturing"},
	{"timesheet", "timesheets", "feuille de temps", "feuilles de temps"},
	{"recrutement", "recruitment", "recruiting", "hiring"},
	{"dépense", "dépenses", "depense", "expense", "expenses", "note de frais", "notes de frais"},
	{"contrat", "contrats", "contract", "contracts"},
	{"livraison", "livraisons", "delivery", "deliveries", "shipping"},
	{"taxe", "taxes", "tva", "vat"},
}

// technicalVariants expands platform and developer vocabulary.
var technicalVariants = map[string][]string{
	"odoo":     {"erp", "odoo.sh", "openerp"},
	"api":      {"xmlrpc", "jsonrpc", "rpc", "external api"},
	"python":   {"module", "model", "orm"},
	"xml":      {"view", "qweb", "template"},
	"database": {"postgresql", "db", "backup"},
	"sql":      {"postgresql", "query"},
	"rpc":      {"xmlrpc", "jsonrpc", "api"},
	"orm":      {"model", "fields", "recordset"},
	"studio":   {"customization", "custom fields"},
	"module":   {"addon", "app", "manifest"},
}

var (
	synonyms          = make(map[string][]string)
	multiWordSynonyms []phraseGroup
)

// phraseGroup maps a multi-word synonym to its expansions. Multi-word
// members cannot be reached by single-term lookup, so Preprocess matches
// them against the whole query.
type phraseGroup struct {
	phrase     string
	expansions []string
}

func init() {
	for _, group := range synonymGroups {
		for _, member := range group {
			others := make([]string, 0, len(group)-1)
			for _, other := range group {
				if other != member {
					others = append(others, other)
				}
			}
			if strings.Contains(member, " ") {
				multiWordSynonyms = append(multiWordSynonyms, phraseGroup{phrase: member, expansions: others})
				continue
			}
			synonyms[member] = append(synonyms[member], others...)
		}
	}
}
