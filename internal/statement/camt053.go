package statement

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html/charset"

	"github.com/cleared-dev/bankfeed/internal/model"
)

const (
	camtCredit       = "CRDT"
	camtOpeningBook  = "OPBD"
	camtClosingBook  = "CLBD"
	camtElemDocument = "Document"
	camtElemBalance  = "Bal"
	camtElemEntry    = "Ntry"
)

// camtDocument binds Document/BkToCstmrStmt/Stmt. Element names are matched
// without namespaces, so every camt.053.001.xx version decodes the same way.
// Stmt is also accepted directly under the root for documents that omit the
// Document wrapper.
type camtDocument struct {
	Statements []camtStatement `xml:"BkToCstmrStmt>Stmt"`
	Bare       []camtStatement `xml:"Stmt"`
}

type camtStatement struct {
	Created  string        `xml:"CreDtTm"`
	From     string        `xml:"FrToDt>FrDtTm"`
	To       string        `xml:"FrToDt>ToDtTm"`
	Account  camtAccount   `xml:"Acct"`
	Balances []camtBalance `xml:"Bal"`
	Entries  []camtEntry   `xml:"Ntry"`
}

type camtAccount struct {
	IBAN     string `xml:"Id>IBAN"`
	Other    string `xml:"Id>Othr>Id"`
	Currency string `xml:"Ccy"`
	Name     string `xml:"Nm"`
}

type camtBalance struct {
	Code           string `xml:"Tp>CdOrPrtry>Cd"`
	Amount         string `xml:"Amt"`
	CreditDebitInd string `xml:"CdtDbtInd"`
}

type camtDate struct {
	Date     string `xml:"Dt"`
	DateTime string `xml:"DtTm"`
}

func (d camtDate) value() string {
	return strings.TrimSpace(firstNonEmpty(d.Date, d.DateTime))
}

type camtEntry struct {
	Ref             string          `xml:"NtryRef"`
	Amount          string          `xml:"Amt"`
	CreditDebitInd  string          `xml:"CdtDbtInd"`
	BookingDate     camtDate        `xml:"BookgDt"`
	ValueDate       camtDate        `xml:"ValDt"`
	ServicerRef     string          `xml:"AcctSvcrRef"`
	DomainCode      string          `xml:"BkTxCd>Domn>Cd"`
	ProprietaryCode string          `xml:"BkTxCd>Prtry>Cd"`
	Details         []camtTxDetails `xml:"NtryDtls>TxDtls"`
	AdditionalInfo  string          `xml:"AddtlNtryInf"`
}

type camtTxDetails struct {
	Unstructured []string   `xml:"RmtInf>Ustrd"`
	Creditor     *camtParty `xml:"RltdPties>Cdtr"`
	Debtor       *camtParty `xml:"RltdPties>Dbtr"`
}

// camtParty covers the flat party (001.02-001.07) and the Pty wrapper (001.08+).
type camtParty struct {
	Name      string `xml:"Nm"`
	PartyName string `xml:"Pty>Nm"`
	OrgName   string `xml:"Id>OrgId>Nm"`
}

func (p *camtParty) name() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(firstNonEmpty(p.Name, p.PartyName, p.OrgName))
}

// ParseCAMT053 decodes an ISO 20022 camt.053 document. Invalid XML yields no
// statements and a diagnostic; it is never an error.
func ParseCAMT053(content string) Result {
	var res Result

	var doc camtDocument
	dec := xml.NewDecoder(strings.NewReader(content))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		res.skip(model.FormatCAMT053, 0, camtElemDocument, fmt.Sprintf("invalid XML: %v", err))
		return res
	}

	stmts := doc.Statements
	if len(stmts) == 0 {
		stmts = doc.Bare
	}
	for i := range stmts {
		res.Statements = append(res.Statements, decodeCAMTStatement(&stmts[i], &res))
	}
	return res
}

func decodeCAMTStatement(s *camtStatement, res *Result) model.Statement {
	created := strings.TrimSpace(s.Created)
	stmt := model.Statement{
		Format:        model.FormatCAMT053,
		AccountNumber: strings.TrimSpace(firstNonEmpty(s.Account.IBAN, s.Account.Other)),
		AccountName:   strings.TrimSpace(s.Account.Name),
		Currency:      firstNonEmpty(strings.TrimSpace(s.Account.Currency), defaultCurrency),
		StatementDate: created,
		PeriodStart:   firstNonEmpty(strings.TrimSpace(s.From), created),
		PeriodEnd:     firstNonEmpty(strings.TrimSpace(s.To), created),
	}

	for _, bal := range s.Balances {
		code := strings.TrimSpace(bal.Code)
		if code != camtOpeningBook && code != camtClosingBook {
			continue
		}
		amount, err := camtAmount(bal.Amount)
		if err != nil {
			res.skip(model.FormatCAMT053, 0, camtElemBalance, fmt.Sprintf("%s balance for %s: %v", code, stmt.AccountNumber, err))
			continue
		}
		if strings.TrimSpace(bal.CreditDebitInd) != camtCredit {
			amount = amount.Neg()
		}
		if code == camtOpeningBook {
			stmt.OpeningBalance = amount
			stmt.HasOpeningBalance = true
		} else {
			stmt.ClosingBalance = amount
			stmt.HasClosingBalance = true
		}
	}

	for i, e := range s.Entries {
		txn, err := decodeCAMTEntry(e, stmt.StatementDate)
		if err != nil {
			res.skip(model.FormatCAMT053, 0, camtElemEntry, fmt.Sprintf("entry %d for %s: %v", i+1, stmt.AccountNumber, err))
			continue
		}
		stmt.Transactions = append(stmt.Transactions, txn)
	}

	return stmt
}

func decodeCAMTEntry(e camtEntry, statementDate string) (model.Transaction, error) {
	amount, err := camtAmount(e.Amount)
	if err != nil {
		return model.Transaction{}, err
	}

	txType := model.TransactionDebit
	if strings.TrimSpace(e.CreditDebitInd) == camtCredit {
		txType = model.TransactionCredit
	}

	booking := e.BookingDate.value()
	description := strings.TrimSpace(e.AdditionalInfo)
	counterparty := ""
	if len(e.Details) > 0 {
		first := e.Details[0]
		if description == "" {
			description = joinTrimmed(first.Unstructured)
		}
		counterparty = first.Creditor.name()
		if counterparty == "" {
			counterparty = first.Debtor.name()
		}
	}

	servicerRef := strings.TrimSpace(e.ServicerRef)
	return model.Transaction{
		Date:            firstNonEmpty(booking, statementDate),
		ValueDate:       firstNonEmpty(e.ValueDate.value(), booking),
		Amount:          amount.Abs(),
		Type:            txType,
		TransactionCode: strings.TrimSpace(firstNonEmpty(e.DomainCode, e.ProprietaryCode)),
		Reference:       firstNonEmpty(servicerRef, strings.TrimSpace(e.Ref)),
		BankReference:   servicerRef,
		Description:     firstNonEmpty(description, defaultDescription),
		Counterparty:    counterparty,
	}, nil
}

func camtAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("missing amount")
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return amount, nil
}

func joinTrimmed(parts []string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
