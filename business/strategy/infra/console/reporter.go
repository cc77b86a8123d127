package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	positionDomain "github.com/fd1az/dma-strategies/business/position/domain"
	simDomain "github.com/fd1az/dma-strategies/business/simulation/domain"
	"github.com/fd1az/dma-strategies/business/strategy/domain"
	"github.com/fd1az/dma-strategies/internal/asset"
)

// healthWarning is the health factor under which a position is shown as at risk.
var healthWarning = decimal.RequireFromString("1.1")

// Reporter writes human readable summaries of strategy builds.
type Reporter struct {
	out    io.Writer
	styles styles
}

// NewReporter creates a Reporter writing to out.
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out, styles: newStyles(lipgloss.NewRenderer(out))}
}

// Report prints a built strategy.
func (r *Reporter) Report(res *domain.Result) {
	s := r.styles
	tx := res.Transaction

	var b strings.Builder
	b.WriteString(s.title.Render(tx.OperationName))
	b.WriteString("\n\n")

	if tr := res.Simulation; tr != nil {
		b.WriteString(s.section.Render("POSITION"))
		b.WriteString("\n")
		r.row(&b, "Collateral", transition(tr.Current.Collateral(), tr.Target.Collateral()))
		r.row(&b, "Debt", transition(tr.Current.Debt(), tr.Target.Debt()))
		r.row(&b, "LTV", fmt.Sprintf("%s -> %s",
			tr.Current.RiskRatio().LoanToValue().StringFixed(4), tr.Target.RiskRatio().LoanToValue().StringFixed(4)))
		r.row(&b, "Multiple", fmt.Sprintf("%sx -> %sx",
			tr.Current.RiskRatio().Multiple().StringFixed(2), tr.Target.RiskRatio().Multiple().StringFixed(2)))
		r.row(&b, "Liquidation price", tr.Target.LiquidationPrice().StringFixed(4))
		r.row(&b, "Health factor", r.health(tr.Target))
		b.WriteString("\n")

		b.WriteString(s.section.Render("LEGS"))
		b.WriteString("\n")
		r.leg(&b, "Flashloan", tr.Flashloan)
		r.leg(&b, "Deposit", tr.Deposit)
		r.leg(&b, "Borrow", tr.Borrow)
		r.leg(&b, "Payback", tr.Payback)
		r.leg(&b, "Withdraw", tr.Withdraw)
		if sw := tr.Swap; sw != nil {
			r.swap(&b, sw)
		}

		if len(tr.Issues) > 0 {
			b.WriteString("\n")
			b.WriteString(s.section.Render("ISSUES"))
			b.WriteString("\n")
			for _, is := range tr.Issues {
				b.WriteString(r.issue(is))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}

	b.WriteString(s.section.Render("TRANSACTION"))
	b.WriteString("\n")
	r.row(&b, "To", tx.To.Hex())
	r.row(&b, "Calls", fmt.Sprintf("%d", len(tx.Calls)))
	r.row(&b, "Calldata", fmt.Sprintf("%d bytes", len(tx.Data)))
	if tx.Value != nil && tx.Value.Sign() > 0 {
		r.row(&b, "Value", asset.NewAmount(asset.ETH, tx.Value).StringFixed(6))
	}
	if g := tx.Gas; g != nil {
		gas := fmt.Sprintf("%d (%s ETH)", g.GasLimit, g.TotalETH().StringFixed(6))
		if g.Defaulted {
			gas += s.muted.Render(" default")
		}
		r.row(&b, "Gas", gas)
	}

	fmt.Fprintln(r.out, s.box.Render(strings.TrimRight(b.String(), "\n")))
}

// ReportView prints a position read.
func (r *Reporter) ReportView(v *domain.View) {
	s := r.styles
	p := v.Position

	var b strings.Builder
	b.WriteString(s.title.Render(v.Collateral.Symbol() + "/" + v.Debt.Symbol()))
	b.WriteString("\n\n")
	r.row(&b, "Collateral", p.Collateral().StringFixed(6))
	r.row(&b, "Debt", p.Debt().StringFixed(6))
	r.row(&b, "Oracle price", p.OraclePrice().StringFixed(6))
	r.row(&b, "LTV", p.RiskRatio().LoanToValue().StringFixed(4))
	r.row(&b, "Max LTV", p.Category().MaxLoanToValue.String())
	r.row(&b, "Liquidation threshold", p.Category().LiquidationThreshold.String())
	r.row(&b, "Liquidation price", p.LiquidationPrice().StringFixed(4))
	r.row(&b, "Health factor", r.health(p))
	if v.EMode != nil {
		r.row(&b, "E-Mode", fmt.Sprintf("%d", v.EMode.ID))
	}

	fmt.Fprintln(r.out, s.box.Render(strings.TrimRight(b.String(), "\n")))
}

func (r *Reporter) row(b *strings.Builder, label, value string) {
	b.WriteString(r.styles.label.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

func (r *Reporter) leg(b *strings.Builder, label string, a asset.Amount) {
	if a.Asset() == nil || a.IsZero() {
		return
	}
	r.row(b, label, a.StringFixed(6))
}

func (r *Reporter) swap(b *strings.Builder, sw *simDomain.Swap) {
	r.row(b, "Swap", fmt.Sprintf("%s -> %s", sw.FromTokenAmount.StringFixed(6), sw.ToTokenAmount.StringFixed(6)))
	r.row(b, "Min received", sw.MinToTokenAmount.StringFixed(6))
	if sw.TokenFee.Asset() != nil && !sw.TokenFee.IsZero() {
		r.row(b, "Fee", fmt.Sprintf("%s (%d bps, %s)", sw.TokenFee.StringFixed(6), sw.FeeBps, sw.CollectFeeFrom))
	}
}

func (r *Reporter) issue(is positionDomain.Issue) string {
	switch is.Kind {
	case positionDomain.IssueError:
		return r.styles.bad.Render("x " + is.Name)
	case positionDomain.IssueWarning:
		return r.styles.warning.Render("! " + is.Name)
	}
	return r.styles.good.Render("+ " + is.Name)
}

func (r *Reporter) health(p positionDomain.Position) string {
	hf := p.HealthFactor()
	text := hf.StringFixed(4)
	switch {
	case hf.IsZero():
		return r.styles.muted.Render("no debt")
	case hf.LessThan(healthWarning):
		return r.styles.bad.Render(text)
	}
	return r.styles.good.Render(text)
}

func transition(from, to asset.Amount) string {
	return fmt.Sprintf("%s -> %s", from.StringFixed(6), to.StringFixed(6))
}
