package main

import (
	"fmt"
	"strings"

	"bakery/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C0662B"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	starStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F5B301"))
	noticeStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#D9A441"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5484D"))
	idStyle     = lipgloss.NewStyle().Faint(true)
)

func stars(n int) string {
	n = max(0, min(5, n))
	return starStyle.Render(strings.Repeat("★", n)) + mutedStyle.Render(strings.Repeat("☆", 5-n))
}

func km(d *float64) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("%.1f km", *d)
}

func price(p float64) string { return fmt.Sprintf("₹%.0f", p) }

func shopLine(l models.ShopListing) string {
	parts := []string{titleStyle.Render(l.Shop.ShopName)}
	if l.Shop.City != "" {
		parts = append(parts, l.Shop.City)
	}
	if d := km(l.DistanceInKm); d != "" {
		parts = append(parts, accentStyle.Render(d))
	}
	parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d reviews", l.Shop.TotalReviews)))
	return strings.Join(parts, "  ") + "  " + idStyle.Render(l.Shop.ID)
}

func productLine(p models.Product) string {
	parts := []string{titleStyle.Render(p.ProductName), price(p.Price)}
	if p.UnitValue > 0 && p.UnitType != "" {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("/ %g %s", p.UnitValue, p.UnitType)))
	}
	if p.Shop.ShopName != "" {
		parts = append(parts, "at "+p.Shop.ShopName)
	}
	if d := km(p.Distance); d != "" {
		label := d
		if p.IsNearby {
			label += " nearby"
		}
		parts = append(parts, accentStyle.Render(label))
	}
	return strings.Join(parts, "  ") + "  " + idStyle.Render(p.ID)
}

func orderLine(o models.Order) string {
	var items []string
	for _, it := range o.Items {
		name := it.Product.ProductName
		if name == "" {
			name = it.Product.ID
		}
		items = append(items, fmt.Sprintf("%dx %s", it.Quantity, name))
	}
	if len(items) == 0 {
		items = append(items, "custom order")
	}
	line := fmt.Sprintf("%s  %s  %s  %s  %s",
		idStyle.Render(o.ID),
		o.CreatedAt.Local().Format("02 Jan 2006"),
		statusStyle(o.OrderStatus).Render(string(o.OrderStatus)),
		strings.Join(items, ", "),
		price(o.TotalAmount),
	)
	if o.Shop.ShopName != "" {
		line += "  " + mutedStyle.Render(o.Shop.ShopName)
	}
	if o.Reviewable() {
		line += "  " + noticeStyle.Render("(awaiting your review)")
	}
	return line
}

func statusStyle(s models.OrderStatus) lipgloss.Style {
	switch s {
	case models.OrderDelivered:
		return accentStyle
	case models.OrderCancelled:
		return errorStyle
	}
	return noticeStyle
}

func reviewLine(r models.Review) string {
	line := stars(r.Rating) + "  " + r.ReviewerName()
	if r.Comment != "" {
		line += ": " + r.Comment
	}
	return line
}

func pageFooter(current, total, shown int) string {
	if current == 0 {
		return ""
	}
	footer := fmt.Sprintf("page %d of %d, %d shown", current, total, shown)
	if current < total {
		footer += ", use --all for the rest"
	}
	return mutedStyle.Render(footer)
}
