package indexer

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/docparser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

const syntheticParser = "synthetic"

type syntheticSource struct {
	id          string
	title       string
	description string
	section     string
	subsection  string
	content     string
}

// syntheticSources cover cross-cutting questions the raw corpus answers
// poorly because the information is spread over many pages.
var syntheticSources = []syntheticSource{
	{
		id:          "synthetic_leave_management_overview",
		title:       "Leave Management Overview",
		description: "How time off, leave types, allocations and approvals fit together.",
		section:     "applications",
		subsection:  "hr",
		content: "Leave management in Odoo is handled by the Time Off application. " +
			"Administrators first configure leave types such as paid time off, sick leave or compensatory days. " +
			"Each leave type defines whether an allocation is required, who approves requests and how the time is counted. " +
			"Allocations grant employees a number of days or hours, either manually or through accrual plans. " +
			"Employees submit leave requests from the Time Off dashboard and managers approve or refuse them. " +
			"Approved leave appears in the employee calendar, in planning and in payroll work entries.",
	},
	{
		id:          "synthetic_user_access_rights",
		title:       "User Access Rights and Permissions",
		description: "Granting users access to applications with groups and access rights.",
		section:     "administration",
		subsection:  "users",
		content: "Access rights are managed from Settings, Users and Companies, Users. " +
			"Each user is linked to groups, and groups define which applications and menus the user can see. " +
			"Most applications offer a user level and an administrator level. " +
			"Record rules restrict which records of a model a group may read or modify. " +
			"Activate developer mode to inspect groups, access rights and record rules in detail. " +
			"Portal users have limited access to their own documents such as quotations, invoices and tasks.",
	},
	{
		id:          "synthetic_getting_started_first_steps",
		title:       "Getting Started with Odoo",
		description: "First steps after creating a database: company settings, users and apps.",
		section:     "getting_started",
		subsection:  "",
		content: "After creating a database, start by completing the company information in Settings. " +
			"Set the company name, address, logo, currency and fiscal localization. " +
			"Invite users and assign them the applications they need. " +
			"Install applications from the Apps menu; dependencies are installed automatically. " +
			"Import existing data such as customers, products and vendors using the import tool with CSV or Excel files. " +
			"Follow the onboarding panels shown in each application to configure the essential options.",
	},
	{
		id:          "synthetic_import_export_data",
		title:       "Importing and Exporting Data",
		description: "Moving records in and out of the database with CSV and Excel files.",
		section:     "essentials",
		subsection:  "export_import_data",
		content: "Most list views offer an import action under the favorites menu. " +
			"Download the provided template to get the expected columns, fill it in and upload the file. " +
			"The import assistant maps columns to fields and lets you test the import before running it. " +
			"External identifiers allow updating existing records instead of creating duplicates. " +
			"To export, select records in a list view, choose Export and pick the fields to include. " +
			"Exports compatible with import keep external identifiers so the file can be re-imported.",
	},
	{
		id:          "synthetic_multi_company_setup",
		title:       "Multi-Company Configuration",
		description: "Running several companies in one database with shared or separate data.",
		section:     "applications",
		subsection:  "general",
		content: "Several companies can be managed in a single database. " +
			"Create additional companies from Settings, Companies, and allow users to access them. " +
			"The company switcher in the top bar selects the companies whose records are visible. " +
			"Products, contacts and other records can be shared or restricted to one company. " +
			"Inter-company rules automatically create matching sales and purchase orders or invoices between companies. " +
			"Each company keeps its own chart of accounts, taxes and fiscal localization.",
	},
}

// SyntheticDocuments returns the hand-authored reference documents appended
// after each indexing run. They bypass the minimum content length filter.
func SyntheticDocuments(now time.Time) []*index.Document {
	docs := make([]*index.Document, 0, len(syntheticSources))
	for _, s := range syntheticSources {
		words := tokenizer.WordCount(s.content)
		docs = append(docs, &index.Document{
			ID:          s.id,
			Title:       s.title,
			Description: s.description,
			Content:     s.content,
			Section:     s.section,
			Subsection:  s.subsection,
			Keywords:    docparser.Keywords(s.title, s.section, s.subsection),
			WordCount:   words,
			ReadingTime: docparser.ReadingTime(words),
			FileSize:    int64(len(s.content)),
			FileType:    syntheticParser,
			LastUpdated: now.UTC(),
			Metadata: index.Metadata{
				Parser: syntheticParser,
				Source: index.SourceSynthetic,
			},
		})
	}
	return docs
}
