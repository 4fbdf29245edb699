package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadflow/leadctl/internal/core/domain"
	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/query"
)

var lead struct {
	firstName    string
	lastName     string
	email        string
	phone        string
	company      string
	city         string
	state        string
	source       string
	status       string
	score        int
	value        float64
	lastActivity string
	qualified    bool
}

var list struct {
	page      int
	limit     int
	search    string
	status    string
	source    string
	qualified string
	sortBy    string
	order     string
}

var leadsCmd = &cobra.Command{
	Use:     "leads",
	Aliases: []string{"lead"},
	Short:   "List and manage leads",
	Args:    cobra.NoArgs,
	RunE:    runLeadsList,
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads with filters, search and sorting",
	Example: `  leadctl leads list --status qualified --sort-by score --order desc
  leadctl leads list --search acme --page 2 --limit 50`,
	Args: cobra.NoArgs,
	RunE: runLeadsList,
}

var leadsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one lead",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadsGet,
}

var leadsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a lead",
	Args:  cobra.NoArgs,
	RunE:  runLeadsCreate,
}

var leadsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change the given fields of a lead",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadsUpdate,
}

var leadsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a lead",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeadsDelete,
}

func init() {
	for _, c := range []*cobra.Command{leadsCmd, leadsListCmd} {
		f := c.Flags()
		f.IntVar(&list.page, "page", domain.DefaultPage, "page number")
		f.IntVar(&list.limit, "limit", 0, "page size (defaults to PAGE_LIMIT)")
		f.StringVarP(&list.search, "search", "s", "", "free text search")
		f.StringVar(&list.status, "status", query.All, "filter by status")
		f.StringVar(&list.source, "source", query.All, "filter by source")
		f.StringVar(&list.qualified, "qualified", query.All, "filter by qualification: yes, no or all")
		f.StringVar(&list.sortBy, "sort-by", query.DefaultSortField, "sort field")
		f.StringVar(&list.order, "order", string(query.Desc), "sort order: asc or desc")
	}

	for _, c := range []*cobra.Command{leadsCreateCmd, leadsUpdateCmd} {
		f := c.Flags()
		f.StringVar(&lead.firstName, "first-name", "", "first name")
		f.StringVar(&lead.lastName, "last-name", "", "last name")
		f.StringVar(&lead.email, "email", "", "email")
		f.StringVar(&lead.phone, "phone", "", "phone number, digits with optional leading +")
		f.StringVar(&lead.company, "company", "", "company")
		f.StringVar(&lead.city, "city", "", "city")
		f.StringVar(&lead.state, "state", "", "state")
		f.StringVar(&lead.source, "source", "", "website, facebook_ads, google_ads, referral, events or other")
		f.StringVar(&lead.status, "status", "", "new, contacted, qualified, lost or won")
		f.IntVar(&lead.score, "score", 0, "score from 0 to 100")
		f.Float64Var(&lead.value, "value", 0, "estimated lead value")
		f.StringVar(&lead.lastActivity, "last-activity", "", "last activity, RFC 3339 or YYYY-MM-DD")
		f.BoolVar(&lead.qualified, "qualified", false, "mark as qualified")
	}

	leadsCmd.AddCommand(leadsListCmd, leadsGetCmd, leadsCreateCmd, leadsUpdateCmd, leadsDeleteCmd)
}

func runLeadsList(cmd *cobra.Command, _ []string) error {
	p := query.Default()
	p.Page = list.page
	if list.limit > 0 {
		p.Limit = list.limit
	} else {
		p.Limit = application.Config.PageLimit
	}
	p.Search = list.search
	p.Filters = query.Filters{Status: list.status, Source: list.source, Qualified: list.qualified}
	p.Sort = query.Sort{Field: list.sortBy, Order: query.Order(list.order)}

	page, err := application.Leads.List(cmd.Context(), p)
	if err != nil {
		return err
	}
	return printResult(cmd, page, func(w io.Writer) {
		if len(page.Leads) == 0 {
			fmt.Fprintln(w, "No leads found.")
			return
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tCOMPANY\tSTATUS\tSOURCE\tSCORE\tQUALIFIED")
		for _, l := range page.Leads {
			fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				l.ID, l.FirstName, l.LastName, l.Email, l.Company, l.Status, l.Source, l.Score, yesNo(l.IsQualified))
		}
		tw.Flush()
		pg := page.Pagination
		fmt.Fprintf(w, "\nPage %d of %d (%d leads)\n", pg.Page, pg.LastPage(), pg.Total)
	})
}

func runLeadsGet(cmd *cobra.Command, args []string) error {
	l, err := application.Leads.GetOne(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printResult(cmd, l, func(w io.Writer) { printLead(w, *l) })
}

func runLeadsCreate(cmd *cobra.Command, _ []string) error {
	activity, err := parseActivity(lead.lastActivity)
	if err != nil {
		return err
	}
	in := ports.CreateLeadInput{
		FirstName:      lead.firstName,
		LastName:       lead.lastName,
		Email:          lead.email,
		Phone:          lead.phone,
		Company:        lead.company,
		City:           lead.city,
		State:          lead.state,
		Source:         domain.LeadSource(lead.source),
		Status:         domain.LeadStatus(lead.status),
		Score:          lead.score,
		LeadValue:      lead.value,
		LastActivityAt: activity,
		IsQualified:    lead.qualified,
	}
	created, err := application.Leads.Create(cmd.Context(), in)
	if err != nil {
		return err
	}
	return printResult(cmd, created, func(w io.Writer) { printLead(w, *created) })
}

func runLeadsUpdate(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	var in ports.UpdateLeadInput
	in.FirstName = optional(cmd, "first-name", lead.firstName)
	in.LastName = optional(cmd, "last-name", lead.lastName)
	in.Email = optional(cmd, "email", lead.email)
	in.Phone = optional(cmd, "phone", lead.phone)
	in.Company = optional(cmd, "company", lead.company)
	in.City = optional(cmd, "city", lead.city)
	in.State = optional(cmd, "state", lead.state)
	if f.Changed("source") {
		src := domain.LeadSource(lead.source)
		in.Source = &src
	}
	if f.Changed("status") {
		st := domain.LeadStatus(lead.status)
		in.Status = &st
	}
	if f.Changed("score") {
		score := lead.score
		in.Score = &score
	}
	if f.Changed("value") {
		v := lead.value
		in.LeadValue = &v
	}
	if f.Changed("last-activity") {
		activity, err := parseActivity(lead.lastActivity)
		if err != nil {
			return err
		}
		in.LastActivityAt = activity
	}
	if f.Changed("qualified") {
		q := lead.qualified
		in.IsQualified = &q
	}

	updated, err := application.Leads.Update(cmd.Context(), args[0], in)
	if err != nil {
		return err
	}
	return printResult(cmd, updated, func(w io.Writer) { printLead(w, *updated) })
}

func runLeadsDelete(cmd *cobra.Command, args []string) error {
	if _, err := application.Leads.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	return printResult(cmd, map[string]string{"id": args[0]}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted lead %s\n", args[0])
	})
}

func printLead(w io.Writer, l domain.Lead) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(k, v string) { fmt.Fprintf(tw, "%s:\t%s\n", k, v) }
	row("ID", l.ID)
	row("Name", l.FirstName+" "+l.LastName)
	row("Email", l.Email)
	row("Phone", l.Phone)
	row("Company", l.Company)
	row("Location", l.City+", "+l.State)
	row("Source", string(l.Source))
	row("Status", string(l.Status))
	row("Score", strconv.Itoa(l.Score))
	row("Value", strconv.FormatFloat(l.LeadValue, 'f', 2, 64))
	row("Qualified", yesNo(l.IsQualified))
	if l.LastActivityAt != nil {
		row("Last activity", l.LastActivityAt.Format(time.RFC3339))
	}
	if !l.CreatedAt.IsZero() {
		row("Created", l.CreatedAt.Format(time.RFC3339))
	}
	tw.Flush()
}

func parseActivity(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, &domain.ValidationError{Fields: map[string]string{
		"last_activity_at": "last_activity_at must be RFC 3339 or YYYY-MM-DD",
	}}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
