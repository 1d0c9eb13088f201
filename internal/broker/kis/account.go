package kis

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"kis-trading-bot/internal/types"
)

// CurrentPrice returns the latest traded price for a KRX symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("fid_cond_mrkt_div_code", "J")
	q.Set("fid_input_iscd", symbol)

	var out struct {
		RtCd   string `json:"rt_cd"`
		Msg    string `json:"msg1"`
		Output struct {
			Price string `json:"stck_prpr"`
		} `json:"output"`
	}
	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-price", "FHKST01010100", q, &out); err != nil {
		return 0, err
	}
	if out.RtCd != "0" {
		return 0, fmt.Errorf("price query for %s rejected: %s", symbol, out.Msg)
	}
	price, err := strconv.ParseFloat(out.Output.Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("price query for %s returned %q", symbol, out.Output.Price)
	}
	return price, nil
}

// Balance reads the account: every holding plus the deposit cash total.
func (c *Client) Balance(ctx context.Context) (types.BalanceSnapshot, error) {
	q := url.Values{}
	q.Set("CANO", c.p.AccountNo)
	q.Set("ACNT_PRDT_CD", "01")
	q.Set("AFHR_FLPR_YN", "N")
	q.Set("OFL_YN", "")
	q.Set("INQR_DVSN", "02")
	q.Set("UNPR_DVSN", "01")
	q.Set("FUND_STTL_ICLD_YN", "N")
	q.Set("FNCG_AMT_AUTO_RDPT_YN", "N")
	q.Set("PRCS_DVSN", "00")
	q.Set("CTX_AREA_FK100", "")
	q.Set("CTX_AREA_NK100", "")

	var out struct {
		RtCd    string `json:"rt_cd"`
		Msg     string `json:"msg1"`
		Output1 []struct {
			Symbol   string `json:"pdno"`
			Name     string `json:"prdt_name"`
			Quantity string `json:"hldg_qty"`
			AvgPrice string `json:"pchs_avg_pric"`
		} `json:"output1"`
		Output2 []struct {
			Cash string `json:"dnca_tot_amt"`
		} `json:"output2"`
	}
	if err := c.get(ctx, "/uapi/domestic-stock/v1/trading/inquire-balance", c.trID("TTTC8434R"), q, &out); err != nil {
		return types.BalanceSnapshot{}, err
	}
	if out.RtCd != "0" {
		return types.BalanceSnapshot{}, fmt.Errorf("balance query rejected: %s", out.Msg)
	}
	if len(out.Output2) == 0 {
		return types.BalanceSnapshot{}, fmt.Errorf("balance query returned no cash record")
	}

	bal := types.BalanceSnapshot{}
	bal.Cash, _ = strconv.ParseFloat(out.Output2[0].Cash, 64)
	for _, h := range out.Output1 {
		qty, _ := strconv.Atoi(h.Quantity)
		if qty <= 0 {
			continue
		}
		avg, _ := strconv.ParseFloat(h.AvgPrice, 64)
		bal.Positions = append(bal.Positions, types.BrokerPosition{
			Symbol:   h.Symbol,
			Name:     h.Name,
			Quantity: qty,
			AvgPrice: avg,
		})
	}
	return bal, nil
}

// DailyCandles returns daily bars for [start, end], ascending by date.
func (c *Client) DailyCandles(ctx context.Context, symbol string, start, end time.Time) ([]types.Candle, error) {
	q := url.Values{}
	q.Set("fid_cond_mrkt_div_code", "J")
	q.Set("fid_input_iscd", symbol)
	q.Set("fid_input_date_1", start.In(KST).Format("20060102"))
	q.Set("fid_input_date_2", end.In(KST).Format("20060102"))
	q.Set("fid_period_div_code", "D")
	q.Set("fid_org_adj_prc", "0")

	var out struct {
		RtCd    string `json:"rt_cd"`
		Msg     string `json:"msg1"`
		Output2 []struct {
			Date  string `json:"stck_bsop_date"`
			Open  string `json:"stck_oprc"`
			High  string `json:"stck_hgpr"`
			Low   string `json:"stck_lwpr"`
			Close string `json:"stck_clpr"`
			Vol   string `json:"acml_vol"`
		} `json:"output2"`
	}
	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice", "FHKST03010100", q, &out); err != nil {
		return nil, err
	}
	if out.RtCd != "0" {
		return nil, fmt.Errorf("daily chart query for %s rejected: %s", symbol, out.Msg)
	}

	candles := make([]types.Candle, 0, len(out.Output2))
	for _, row := range out.Output2 {
		if row.Date == "" {
			continue
		}
		t, err := time.ParseInLocation("20060102", row.Date, KST)
		if err != nil {
			continue
		}
		cl, err := strconv.ParseFloat(row.Close, 64)
		if err != nil {
			continue
		}
		op, _ := strconv.ParseFloat(row.Open, 64)
		hi, _ := strconv.ParseFloat(row.High, 64)
		lo, _ := strconv.ParseFloat(row.Low, 64)
		vol, _ := strconv.ParseFloat(row.Vol, 64)
		candles = append(candles, types.Candle{
			Ts:    t.Unix(),
			Open:  op,
			High:  hi,
			Low:   lo,
			Close: cl,
			Vol:   vol,
		})
	}
	// The API returns newest-first; callers expect ascending time.
	sort.Slice(candles, func(i, j int) bool { return candles[i].Ts < candles[j].Ts })
	return candles, nil
}
