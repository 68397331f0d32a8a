package agent

import (
	"strings"

	"github.com/shopspring/decimal"

	xerrors "agents-gateway/internal/errors"
)

func init() {
	// COMMISSION 以 JSON 数字输出，与数据库行的原始形态保持一致。
	decimal.MarshalJSONWithoutQuotes = true
}

// Agent 对应 agents 表中的一行。表结构由外部维护，除主键外的列都可能为 NULL，
// NULL 以 nil / 无效的 NullDecimal 表示，并以 JSON null 输出。
type Agent struct {
	Code        string              `db:"agent_code" json:"AGENT_CODE"`
	Name        *string             `db:"agent_name" json:"AGENT_NAME"`
	WorkingArea *string             `db:"working_area" json:"WORKING_AREA"`
	Commission  decimal.NullDecimal `db:"commission" json:"COMMISSION"`
	PhoneNo     *string             `db:"phone_no" json:"PHONE_NO"`
	Country     *string             `db:"country" json:"COUNTRY"`
}

// Company 对应 company 表中的一行，只读。
type Company struct {
	ID   string  `db:"company_id" json:"COMPANY_ID"`
	Name *string `db:"company_name" json:"COMPANY_NAME"`
	City *string `db:"company_city" json:"COMPANY_CITY"`
}

// AgentRequest 是 POST /api/agents 与 PUT /api/agents/{id} 的请求体。
// 指针字段用于区分“未提供”与“零值”。
type AgentRequest struct {
	AgentCode   *string          `json:"agent_code"`
	AgentName   *string          `json:"agent_name"`
	WorkingArea *string          `json:"working_area"`
	Commission  *decimal.Decimal `json:"commission"`
	PhoneNo     *string          `json:"phone_no"`
	Country     *string          `json:"country"`
}

// CommissionRequest 是 PATCH /api/agents/{id} 的请求体。
type CommissionRequest struct {
	Commission *decimal.Decimal `json:"commission"`
}

const (
	msgAllFieldsRequired  = "All fields are required"
	msgCommissionRequired = "Commission field is required"
	msgAgentNotFound      = "Agent not found"
)

// ErrAgentNotFound 在按 AGENT_CODE 未命中任何行时返回。
var ErrAgentNotFound = xerrors.New(xerrors.CodeNotFound, msgAgentNotFound)

// Validate 检查六个字段是否全部存在。字符串为空白视为缺失，
// commission 只要出现（包括 0）即视为存在。
func (r AgentRequest) Validate() (Agent, error) {
	var missing []string
	text := func(name string, v *string) *string {
		if v == nil || strings.TrimSpace(*v) == "" {
			missing = append(missing, name)
			return nil
		}
		value := *v
		return &value
	}

	code := text("agent_code", r.AgentCode)
	agent := Agent{
		Name:        text("agent_name", r.AgentName),
		WorkingArea: text("working_area", r.WorkingArea),
		PhoneNo:     text("phone_no", r.PhoneNo),
		Country:     text("country", r.Country),
	}
	if r.Commission == nil {
		missing = append(missing, "commission")
	} else {
		agent.Commission = decimal.NewNullDecimal(*r.Commission)
	}

	if len(missing) > 0 {
		return Agent{}, xerrors.New(xerrors.CodeInvalidArgument, msgAllFieldsRequired,
			xerrors.WithMetadata("missing", strings.Join(missing, ",")))
	}
	agent.Code = *code
	return agent, nil
}

// Validate 检查 commission 是否存在。
func (r CommissionRequest) Validate() (decimal.Decimal, error) {
	if r.Commission == nil {
		return decimal.Decimal{}, xerrors.New(xerrors.CodeInvalidArgument, msgCommissionRequired,
			xerrors.WithMetadata("missing", "commission"))
	}
	return *r.Commission, nil
}
