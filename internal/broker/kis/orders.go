package kis

import (
	"context"
	"fmt"
	"net/url"

	"kis-trading-bot/internal/types"
)

// PlaceOrder submits a cash order. LimitPrice 0 is a market order, anything
// else a limit order at that price.
func (c *Client) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	trID := "TTTC0802U" // buy
	if req.Side == types.Sell {
		trID = "TTTC0801U"
	}

	ordDvsn, unpr := "01", "0" // market
	if req.LimitPrice > 0 {
		ordDvsn = "00"
		unpr = fmt.Sprintf("%.0f", req.LimitPrice)
	}

	body := map[string]string{
		"CANO":         c.p.AccountNo,
		"ACNT_PRDT_CD": "01",
		"PDNO":         req.Symbol,
		"ORD_DVSN":     ordDvsn,
		"ORD_QTY":      fmt.Sprintf("%d", req.Qty),
		"ORD_UNPR":     unpr,
	}

	var out struct {
		RtCd   string `json:"rt_cd"`
		Msg    string `json:"msg1"`
		Output struct {
			OrderNo string `json:"ODNO"`
			OrgNo   string `json:"KRX_FWDG_ORD_ORGNO"`
			Time    string `json:"ORD_TMD"`
		} `json:"output"`
	}
	if err := c.post(ctx, "/uapi/domestic-stock/v1/trading/order-cash", c.trID(trID), body, &out); err != nil {
		return types.OrderResp{}, err
	}
	if out.RtCd != "0" || out.Output.OrderNo == "" {
		return types.OrderResp{}, fmt.Errorf("%s order for %s rejected: %s", req.Side, req.Symbol, out.Msg)
	}

	c.mu.Lock()
	c.orders[out.Output.OrderNo] = orderMeta{orgNo: out.Output.OrgNo, symbol: req.Symbol}
	c.mu.Unlock()

	return types.OrderResp{OrderID: out.Output.OrderNo, Status: "SUBMITTED", Message: out.Msg}, nil
}

// OrderOutcome polls the open-order list once. An order that no longer
// appears among the open orders has been filled; one still listed has not.
func (c *Client) OrderOutcome(ctx context.Context, orderID string) (types.OrderOutcome, error) {
	q := url.Values{}
	q.Set("CANO", c.p.AccountNo)
	q.Set("ACNT_PRDT_CD", "01")
	q.Set("INQR_DVSN_1", "0")
	q.Set("INQR_DVSN_2", "0")
	q.Set("CTX_AREA_FK100", "")
	q.Set("CTX_AREA_NK100", "")

	var out struct {
		RtCd   string `json:"rt_cd"`
		Msg    string `json:"msg1"`
		Output []struct {
			OrderNo string `json:"odno"`
		} `json:"output"`
	}
	if err := c.get(ctx, "/uapi/domestic-stock/v1/trading/inquire-psbl-rvsecncl", c.trID("TTTC8036R"), q, &out); err != nil {
		return types.OrderOutcome{OrderID: orderID, Status: types.OrderUnknown}, err
	}
	if out.RtCd != "0" {
		return types.OrderOutcome{OrderID: orderID, Status: types.OrderUnknown},
			fmt.Errorf("open order query rejected: %s", out.Msg)
	}

	for _, o := range out.Output {
		if o.OrderNo == orderID {
			return types.OrderOutcome{OrderID: orderID, Status: types.OrderUnfilled}, nil
		}
	}
	// The execution price is not part of this response; the lifecycle falls
	// back to the submission quote.
	return types.OrderOutcome{OrderID: orderID, Status: types.OrderFilled}, nil
}

// CancelOrder cancels the remaining quantity of an open order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	c.mu.Lock()
	meta, ok := c.orders[orderID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown order id %s", orderID)
	}

	body := map[string]string{
		"CANO":              c.p.AccountNo,
		"ACNT_PRDT_CD":      "01",
		"KRX_FWDG_ORD_ORGNO": meta.orgNo,
		"ORGN_ODNO":         orderID,
		"ORD_DVSN":          "01",
		"RVSE_CNCL_DVSN_CD": "02", // cancel
		"ORD_QTY":           "0",
		"ORD_UNPR":          "0",
		"QTY_ALL_ORD_YN":    "Y",
	}

	var out struct {
		RtCd string `json:"rt_cd"`
		Msg  string `json:"msg1"`
	}
	if err := c.post(ctx, "/uapi/domestic-stock/v1/trading/order-rvsecncl", c.trID("TTTC0803U"), body, &out); err != nil {
		return err
	}
	if out.RtCd != "0" {
		return fmt.Errorf("cancel of %s rejected: %s", orderID, out.Msg)
	}
	return nil
}
