package ols

import (
	"fmt"
	"math"

	"linmod/infra/errorx"
	"linmod/infra/errorx/errCode"

	"github.com/gonum/stat"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// buildInference 由协方差矩阵对角线产出标准误/t值/p值/CI及拟合优度
func buildInference(core *olsCore, covM *mat.Dense, matY *mat.VecDense, mode InferMode) (*FitResult, error) {
	n, k := core.n, core.k
	dfResid := n - k
	dfModel := k - 1

	// 标准误 SE = sqrt( diag(V) )
	// 二维聚类的CGM减法可能造出负对角元, 开方得NaN, 按原定义原样上报
	coeffs := make([]float64, k)
	se := make([]float64, k)
	tStats := make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = core.beta.AtVec(i)
		se[i] = math.Sqrt(covM.At(i, i))
		tStats[i] = coeffs[i] / se[i]
	}

	pValues, confLower, confUpper, err := pvaluesAndCI(coeffs, se, tStats, dfResid, mode, GetAlpha())
	if err != nil {
		return nil, err
	}

	// R² & 调整后R², SST≈0时R²按0处理
	yMean := stat.Mean(rawVec(matY), nil)
	sst := 0.0
	for i := 0; i < n; i++ {
		d := matY.AtVec(i) - yMean
		sst += d * d
	}
	rsq := 0.0
	if math.Abs(sst) >= 1e-12 {
		rsq = 1 - core.ssr/sst
	}
	adjRsq := 1 - (1-rsq)*float64(n-1)/float64(dfResid)

	// F统计量 = [(SST-SSR)/df_model] / [SSR/df_resid]
	// df_model=0无意义, F及p值按NaN上报, 不算错误
	sigma2 := core.ssr / float64(dfResid)
	fStat := math.NaN()
	fPValue := math.NaN()
	if dfModel > 0 {
		if sigma2 < 1e-12 {
			fStat = 0
		} else {
			fStat = (sst - core.ssr) / float64(dfModel) / sigma2
		}
		fdist := distuv.F{D1: float64(dfModel), D2: float64(dfResid)}
		fPValue = fdist.Survival(fStat)
	}

	// 高斯似然 LL = -n/2 * (ln(2π) + ln(SSR/n) + 1)
	nF := float64(n)
	logLik := -nF / 2 * (math.Log(2*math.Pi) + math.Log(core.ssr/nF) + 1)
	aic := 2*float64(k) - 2*logLik
	bic := float64(k)*math.Log(nF) - 2*logLik

	return &FitResult{
		Coeffs:      coeffs,
		SE:          se,
		TStats:      tStats,
		PValues:     pValues,
		ConfLower:   confLower,
		ConfUpper:   confUpper,
		Resids:      rawVec(core.resid),
		NObs:        n,
		DfResid:     dfResid,
		DfModel:     dfModel,
		Sigma2:      sigma2,
		RSquared:    rsq,
		AdjRSquared: adjRsq,
		FStat:       fStat,
		FPValue:     fPValue,
		LogLik:      logLik,
		AIC:         aic,
		BIC:         bic,
		Infer:       mode,
	}, nil
}

// p值（双尾）与置信区间, t分布或标准正态按mode二选一
func pvaluesAndCI(coeffs, se, tStats []float64, dfResid int, mode InferMode, alpha float64) (p, lo, hi []float64, err error) {
	var survival, quantile func(float64) float64
	switch mode {
	case INFER_T:
		if dfResid <= 0 {
			return nil, nil, nil, errorx.New(errCode.DIST_INIT_FAILED,
				fmt.Sprintf("t分布自由度非法: %d", dfResid))
		}
		tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dfResid)}
		survival, quantile = tdist.Survival, tdist.Quantile
	case INFER_NORMAL:
		ndist := distuv.Normal{Mu: 0, Sigma: 1}
		survival, quantile = ndist.Survival, ndist.Quantile
	default:
		return nil, nil, nil, errorx.New(errCode.INVALID_VALUE,
			fmt.Sprintf("未知推断分布: %d", mode))
	}

	k := len(coeffs)
	p = make([]float64, k)
	lo = make([]float64, k)
	hi = make([]float64, k)
	crit := quantile(1 - alpha/2)
	for i := 0; i < k; i++ {
		p[i] = 2 * survival(math.Abs(tStats[i]))
		margin := crit * se[i]
		lo[i] = coeffs[i] - margin
		hi[i] = coeffs[i] + margin
	}
	return p, lo, hi, nil
}

// ReInfer 切换推断分布, 派生新结果
// 只重算p值和置信区间, 系数/协方差对角线原样共享, 代价是常数级的
func (f *FitResult) ReInfer(mode InferMode) (*FitResult, error) {
	p, lo, hi, err := pvaluesAndCI(f.Coeffs, f.SE, f.TStats, f.DfResid, mode, GetAlpha())
	if err != nil {
		return nil, err
	}
	out := *f
	out.PValues = p
	out.ConfLower = lo
	out.ConfUpper = hi
	out.Infer = mode
	return &out, nil
}

func rawVec(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	copy(out, v.RawVector().Data)
	return out
}
