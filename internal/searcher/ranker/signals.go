package ranker

import "github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/classifier"

// signal lists, per classifier tag, the section, title and content
// substrings that mark a document as belonging to that tag.
type signal struct {
	sections []string
	titles   []string
	content  []string
}

var tagSignals = map[classifier.Tag]signal{
	classifier.TagHR: {
		sections: []string{"hr", "human_resources", "employees", "time_off", "payroll", "timesheets", "recruitment", "attendances"},
		titles:   []string{"employee", "leave", "time off", "payroll", "payslip", "timesheet", "recruit", "appraisal", "attendance"},
	},
	classifier.TagSales: {
		sections: []string{"sales", "point_of_sale", "subscriptions"},
		titles:   []string{"sale", "quotation", "pricelist", "customer", "order"},
	},
	classifier.TagPurchase: {
		sections: []string{"purchase", "procurement"},
		titles:   []string{"purchase", "vendor", "supplier", "rfq"},
	},
	classifier.TagInventory: {
		sections: []string{"inventory", "inventory_and_mrp", "warehouses", "shipping"},
		titles:   []string{"inventory", "stock", "warehouse", "delivery", "picking", "lot", "serial"},
	},
	classifier.TagAccounting: {
		sections: []string{"finance", "accounting", "invoicing", "expenses"},
		titles:   []string{"invoice", "payment", "tax", "bank", "reconcil", "journal", "accounting"},
	},
	classifier.TagProject: {
		sections: []string{"project", "services", "planning", "field_service"},
		titles:   []string{"project", "task", "milestone", "planning"},
	},
	classifier.TagManufacturing: {
		sections: []string{"manufacturing", "mrp", "plm", "quality", "maintenance"},
		titles:   []string{"manufactur", "bill of materials", "work order", "workcenter", "production"},
	},
	classifier.TagWebsite: {
		sections: []string{"website", "websites", "ecommerce", "blog", "forum", "elearning"},
		titles:   []string{"website", "ecommerce", "page", "blog", "seo", "shop"},
	},
	classifier.TagCRM: {
		sections: []string{"crm", "sales/crm", "marketing"},
		titles:   []string{"lead", "opportunit", "pipeline", "crm"},
	},
	classifier.TagConfiguration: {
		sections: []string{"settings", "configuration", "general", "administration"},
		titles:   []string{"configur", "setting", "setup", "set up"},
		content:  []string{"go to settings", "configuration menu", "activate the"},
	},
	classifier.TagDevelopment: {
		sections: []string{"developer", "development", "howtos", "reference"},
		titles:   []string{"module", "model", "view", "controller", "orm", "api"},
		content:  []string{"class ", "def ", "_inherit", "<record"},
	},
	classifier.TagInstallation: {
		sections: []string{"install", "administration", "on_premise", "odoo_sh", "maintain"},
		titles:   []string{"install", "deploy", "upgrade", "setup", "migration"},
	},
	classifier.TagUsage: {
		titles: []string{"how to", "using", "manage", "create"},
	},
	classifier.TagTroubleshooting: {
		titles:  []string{"troubleshoot", "faq", "error", "issue", "problem"},
		content: []string{"troubleshoot", "error message", "if the issue persists"},
	},
	classifier.TagReporting: {
		sections: []string{"reporting", "reports"},
		titles:   []string{"report", "dashboard", "analysis", "statistic", "kpi"},
	},
}

var introTitles = []string{"introduction", "getting started", "overview", "basics", "first steps", "tutorial", "quick start"}

var advancedLanguage = []string{"advanced", "customize", "customise", "override", "inherit"}

var technicalLanguage = []string{"api", "python", "xml", "code", "json", "rpc"}

// codeMarkers suggest a document is mostly source listings.
var codeMarkers = []string{"def ", "class ", "import ", "self.", "<record", "<field", "return ", "```"}
