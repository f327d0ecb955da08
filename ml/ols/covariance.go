package ols

import (
	"fmt"
	"math"

	"linmod/infra/errorx"
	"linmod/infra/errorx/errCode"

	"gonum.org/v1/gonum/mat"
)

// 杠杆值判1的阈值: h趋近1时 1/(1-h) 爆掉, 回退用原始u²
// 这是近完美拟合单点的预期行为, 不作为错误
const leverageCap = 0.9999

// covMatrix 系数协方差: covariance = bread * meat * bread
// meat按策略分支, bread全部分支共用求解器缓存的同一份(X'X)^-1
// 纯函数: 只读(resid, X, bread, 策略, 自由度), 无副作用
func covMatrix(core *olsCore, matX *mat.Dense, cov CovType) (*mat.Dense, error) {
	n, k := core.n, core.k
	dfResid := float64(n - k)

	switch cov.Kind {
	case COV_NONROBUST:
		// V = σ² * (X'X)^-1, σ² = SSR/(n-k)
		sigma2 := core.ssr / dfResid
		out := mat.NewDense(k, k, nil)
		out.Scale(sigma2, core.bread)
		return out, nil

	case COV_HC1:
		// White异方差稳健: meat = X' diag(u²) X, 小样本修正 n/(n-k)
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			u := core.resid.AtVec(i)
			w[i] = u * u
		}
		out := sandwich(core.bread, weightedMeat(matX, w))
		out.Scale(float64(n)/dfResid, out)
		return out, nil

	case COV_HC2:
		// 杠杆修正: u²_i / (1-h_i)
		h := leverages(matX, core.bread)
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			u2 := core.resid.AtVec(i) * core.resid.AtVec(i)
			if h[i] >= leverageCap {
				w[i] = u2
			} else {
				w[i] = u2 / (1 - h[i])
			}
		}
		return sandwich(core.bread, weightedMeat(matX, w)), nil

	case COV_HC3:
		// jackknife: u²_i / (1-h_i)²
		h := leverages(matX, core.bread)
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			u2 := core.resid.AtVec(i) * core.resid.AtVec(i)
			if h[i] >= leverageCap {
				w[i] = u2
			} else {
				d := 1 - h[i]
				w[i] = u2 / (d * d)
			}
		}
		return sandwich(core.bread, weightedMeat(matX, w)), nil

	case COV_HC4:
		// Cribari-Neto(2004): u²_i / (1-h_i)^δᵢ, δᵢ = min(4, n*h_i/k)
		// 指数逐观测自适应, 针对强影响点
		h := leverages(matX, core.bread)
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			u2 := core.resid.AtVec(i) * core.resid.AtVec(i)
			if h[i] >= leverageCap {
				w[i] = u2
			} else {
				delta := math.Min(4, float64(n)*h[i]/float64(k))
				w[i] = u2 / math.Pow(1-h[i], delta)
			}
		}
		return sandwich(core.bread, weightedMeat(matX, w)), nil

	case COV_NEWEY_WEST:
		// HAC: meat = Ω₀ + Σ_{l=1..L} w(l)*(Ω_l + Ω_l')
		// Ω₀ = X' diag(u²) X; Ω_l = Σ_{t>=l} u_t*u_{t-l}*x_t⊗x_{t-l}
		// Bartlett核 w(l) = 1 - l/(L+1); 修正同HC1
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			u := core.resid.AtVec(i)
			w[i] = u * u
		}
		meat := weightedMeat(matX, w)

		for l := 1; l <= cov.Lags; l++ {
			wgt := 1 - float64(l)/float64(cov.Lags+1)
			omega := mat.NewDense(k, k, nil)
			for t := l; t < n; t++ {
				scale := core.resid.AtVec(t) * core.resid.AtVec(t-l)
				rowT := matX.RawRowView(t)
				rowPrev := matX.RawRowView(t - l)
				for p := 0; p < k; p++ {
					sp := scale * rowT[p]
					for q := 0; q < k; q++ {
						omega.Set(p, q, omega.At(p, q)+sp*rowPrev[q])
					}
				}
			}
			// meat += w(l) * (Ω_l + Ω_l')
			for p := 0; p < k; p++ {
				for q := 0; q < k; q++ {
					meat.Set(p, q, meat.At(p, q)+wgt*(omega.At(p, q)+omega.At(q, p)))
				}
			}
		}

		out := sandwich(core.bread, meat)
		out.Scale(float64(n)/dfResid, out)
		return out, nil

	case COV_CLUSTER:
		// 一维聚类: meat = Σ_g (Σ_i u_i x_i)(Σ_i u_i x_i)' 组内全外积
		// 修正 (G/(G-1)) * ((n-1)/(n-k))
		meat := clusterMeat(matX, core.resid, cov.Clusters)
		G := float64(countClusters(cov.Clusters))
		out := sandwich(core.bread, meat)
		out.Scale(G/(G-1)*float64(n-1)/dfResid, out)
		return out, nil

	case COV_TWOWAY_CLUSTER:
		// Cameron-Gelbach-Miller: meat = meat₁ + meat₂ - meat₁₂
		// 交叉标签 = label1*span + (label2-min), 第二维先平移到[0,span)
		// 保证任意整数标签(含负数)下 (label1,label2) → 交叉标签 单射无碰撞
		// G取两维较小者(保守)
		meat1 := clusterMeat(matX, core.resid, cov.Clusters)
		meat2 := clusterMeat(matX, core.resid, cov.Clusters2)

		minC2, maxC2 := cov.Clusters2[0], cov.Clusters2[0]
		for _, id := range cov.Clusters2 {
			if id < minC2 {
				minC2 = id
			}
			if id > maxC2 {
				maxC2 = id
			}
		}
		span := maxC2 - minC2 + 1
		inter := make([]int, n)
		for i := 0; i < n; i++ {
			inter[i] = cov.Clusters[i]*span + (cov.Clusters2[i] - minC2)
		}
		meat12 := clusterMeat(matX, core.resid, inter)

		meat := mat.NewDense(k, k, nil)
		meat.Add(meat1, meat2)
		meat.Sub(meat, meat12)

		G := float64(min(countClusters(cov.Clusters), countClusters(cov.Clusters2)))
		out := sandwich(core.bread, meat)
		out.Scale(G/(G-1)*float64(n-1)/dfResid, out)
		return out, nil
	}
	// CovKind是闭集, 绕过构造函数拼出的未知策略按参数非法处理
	return nil, errorx.New(errCode.INVALID_VALUE,
		fmt.Sprintf("未知协方差策略: %d", cov.Kind))
}

// meat = X' diag(w) X
func weightedMeat(matX *mat.Dense, w []float64) *mat.Dense {
	n, k := matX.Dims()
	meat := mat.NewDense(k, k, nil)
	for i := 0; i < n; i++ {
		row := matX.RawRowView(i)
		for p := 0; p < k; p++ {
			wp := w[i] * row[p]
			for q := 0; q < k; q++ {
				meat.Set(p, q, meat.At(p, q)+wp*row[q])
			}
		}
	}
	return meat
}

// 杠杆值 h_i = x_i' (X'X)^-1 x_i
func leverages(matX *mat.Dense, bread *mat.Dense) []float64 {
	n, k := matX.Dims()
	h := make([]float64, n)
	tmp := make([]float64, k)
	for i := 0; i < n; i++ {
		row := matX.RawRowView(i)
		for p := 0; p < k; p++ {
			s := 0.0
			for q := 0; q < k; q++ {
				s += bread.At(p, q) * row[q]
			}
			tmp[p] = s
		}
		for p := 0; p < k; p++ {
			h[i] += row[p] * tmp[p]
		}
	}
	return h
}

// 组内打分和外积: Σ_g s_g s_g', s_g = Σ_{i∈g} u_i x_i
// 等价于组内残差全外积 Σ_i Σ_j u_i u_j x_i x_j', 但少一层平方循环
func clusterMeat(matX *mat.Dense, resid *mat.VecDense, ids []int) *mat.Dense {
	n, k := matX.Dims()
	scores := make(map[int][]float64)
	for i := 0; i < n; i++ {
		s, ok := scores[ids[i]]
		if !ok {
			s = make([]float64, k)
			scores[ids[i]] = s
		}
		u := resid.AtVec(i)
		row := matX.RawRowView(i)
		for p := 0; p < k; p++ {
			s[p] += u * row[p]
		}
	}

	meat := mat.NewDense(k, k, nil)
	for _, s := range scores {
		for p := 0; p < k; p++ {
			for q := 0; q < k; q++ {
				meat.Set(p, q, meat.At(p, q)+s[p]*s[q])
			}
		}
	}
	return meat
}

// bread * meat * bread
func sandwich(bread, meat *mat.Dense) *mat.Dense {
	var bm, out mat.Dense
	bm.Mul(bread, meat)
	out.Mul(&bm, bread)
	return &out
}
