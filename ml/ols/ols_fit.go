package ols

import (
	"fmt"

	"linmod/infra/errorx"
	"linmod/infra/errorx/errCode"

	"gonum.org/v1/gonum/mat"
)

// FitResult 一次拟合的终态记录, 构造后不再修改
// ReInfer会派生新实例, 共享系数/标准误, 只重算p值和置信区间
type FitResult struct {
	Coeffs      []float64 // 回归系数
	SE          []float64 // 标准误
	TStats      []float64 // t/z统计量
	PValues     []float64 // p值（双尾）
	ConfLower   []float64 // 置信区间下界
	ConfUpper   []float64 // 置信区间上界
	Resids      []float64 // 残差
	NObs        int       // 样本数
	DfResid     int       // 残差自由度 n-k
	DfModel     int       // 模型自由度 k-1
	Sigma2      float64   // 残差方差 SSR/(n-k)
	RSquared    float64
	AdjRSquared float64
	FStat       float64
	FPValue     float64
	LogLik      float64
	AIC         float64
	BIC         float64
	Cov         CovType   // 实际使用的协方差策略
	Infer       InferMode // p值/CI所用分布
	VarNames    []string  // 保留列名称, 未命名时为位置名 x0..
	Omitted     []string  // 因共线被剔除的列名称
	OmittedIdx  []int     // 剔除列在原矩阵中的下标
}

// 求解中间量: bread = (X'X)^-1 只算一次, 8个协方差分支共用同一份
// 分支各算各的会浪费且可能悄悄算出两份不一致的结果
type olsCore struct {
	beta  *mat.VecDense
	bread *mat.Dense
	resid *mat.VecDense
	ssr   float64
	n, k  int
}

func solveOLS(matX *mat.Dense, matY *mat.VecDense) (*olsCore, error) {
	n, k := matX.Dims()
	if n <= k {
		return nil, errorx.New(errCode.INVALID_VALUE,
			fmt.Sprintf("自由度退化: 样本数 n=%d 必须大于参数数 k=%d", n, k))
	}

	// 计算 (X'X)
	var XT mat.Dense
	XT.CloneFrom(matX.T())

	var XTX mat.Dense
	XTX.Mul(&XT, matX)

	// (X'X)^(-1)
	// 奇异即整体失败: 不退化到伪逆, 伪逆会悄悄改变结果的统计含义
	var invXTX mat.Dense
	if err := invXTX.Inverse(&XTX); err != nil {
		return nil, errorx.Wrap(errCode.SINGULAR_MATRIX, err, "X'X矩阵不可逆, 请检查自变量是否共线")
	}

	// (X'Y)
	var XTY mat.VecDense
	XTY.MulVec(&XT, matY)

	// β = (X'X)^(-1) * (X'Y)
	beta := mat.NewVecDense(k, nil)
	beta.MulVec(&invXTX, &XTY)

	// 预测值 & 残差
	Yhat := mat.NewVecDense(n, nil)
	Yhat.MulVec(matX, beta)
	resid := mat.NewVecDense(n, nil)
	resid.SubVec(matY, Yhat)

	return &olsCore{
		beta:  beta,
		bread: &invXTX,
		resid: resid,
		ssr:   mat.Dot(resid, resid),
		n:     n,
		k:     k,
	}, nil
}

// Fit 纯位置调用: 不做共线检查
// 面板within/2SLS这类调用方自带列簿记, 剔除列会破坏两侧矩阵的对齐
func Fit(matX *mat.Dense, matY *mat.VecDense, cov CovType) (*FitResult, error) {
	return fit(matX, matY, cov, nil, nil, nil)
}

// FitNamed 带变量名调用: 先过共线检查, 剔除列按名称写回Omitted
// names为nil时退化为位置名但仍做共线检查
func FitNamed(matX *mat.Dense, matY *mat.VecDense, names []string, cov CovType) (*FitResult, error) {
	_, k := matX.Dims()
	if names != nil && len(names) != k {
		return nil, errorx.New(errCode.SHAPE_MISMATCH,
			fmt.Sprintf("变量名数量 %d 与矩阵列数 %d 不匹配", len(names), k))
	}
	if names == nil {
		names = positionalNames(k)
	}

	reduced, kept, droppedIdx := FilterCollinear(matX, 0)

	keptNames := make([]string, len(kept))
	for i, j := range kept {
		keptNames[i] = names[j]
	}
	var omitted []string
	for _, j := range droppedIdx {
		omitted = append(omitted, names[j])
	}
	return fit(reduced, matY, cov, keptNames, omitted, droppedIdx)
}

// 公共拟合流程: 形状校验 → 求解 → 协方差 → 推断统计量
func fit(matX *mat.Dense, matY *mat.VecDense, cov CovType,
	names []string, omitted []string, omittedIdx []int) (*FitResult, error) {

	n, k := matX.Dims()
	if matY.Len() != n {
		return nil, errorx.New(errCode.SHAPE_MISMATCH,
			fmt.Sprintf("Y长度 %d 与X行数 %d 不匹配", matY.Len(), n))
	}
	// 聚类标签/滞后参数在任何计算前校验, 不做静默截断
	switch cov.Kind {
	case COV_NEWEY_WEST:
		if cov.Lags < 0 {
			return nil, errorx.New(errCode.INVALID_VALUE,
				fmt.Sprintf("NeweyWest滞后阶数非法: %d", cov.Lags))
		}
	case COV_CLUSTER:
		if len(cov.Clusters) != n {
			return nil, errorx.New(errCode.SHAPE_MISMATCH,
				fmt.Sprintf("聚类标签长度 %d 与样本数 %d 不匹配", len(cov.Clusters), n))
		}
	case COV_TWOWAY_CLUSTER:
		if len(cov.Clusters) != n || len(cov.Clusters2) != n {
			return nil, errorx.New(errCode.SHAPE_MISMATCH,
				fmt.Sprintf("二维聚类标签长度 (%d,%d) 与样本数 %d 不匹配",
					len(cov.Clusters), len(cov.Clusters2), n))
		}
	}

	core, err := solveOLS(matX, matY)
	if err != nil {
		return nil, err
	}

	covM, err := covMatrix(core, matX, cov)
	if err != nil {
		return nil, err
	}

	res, err := buildInference(core, covM, matY, INFER_T)
	if err != nil {
		return nil, err
	}

	if names == nil {
		names = positionalNames(k)
	}
	res.Cov = cov
	res.VarNames = names
	res.Omitted = omitted
	res.OmittedIdx = omittedIdx
	return res, nil
}

func positionalNames(k int) []string {
	names := make([]string, k)
	for j := 0; j < k; j++ {
		names[j] = fmt.Sprintf("x%d", j)
	}
	return names
}

// Predict 用已拟合系数对新样本做预测 yhat = Xnew*β
func (f *FitResult) Predict(xNew *mat.Dense) (*mat.VecDense, error) {
	rows, cols := xNew.Dims()
	if cols != len(f.Coeffs) {
		return nil, errorx.New(errCode.SHAPE_MISMATCH,
			fmt.Sprintf("新数据列数 %d 与系数个数 %d 不匹配", cols, len(f.Coeffs)))
	}
	beta := mat.NewVecDense(len(f.Coeffs), f.Coeffs)
	out := mat.NewVecDense(rows, nil)
	out.MulVec(xNew, beta)
	return out, nil
}

// FittedValues 样本内预测值
func (f *FitResult) FittedValues(matX *mat.Dense) (*mat.VecDense, error) {
	return f.Predict(matX)
}

// Residuals 给定数据上的残差 y - Xβ
func (f *FitResult) Residuals(matY *mat.VecDense, matX *mat.Dense) (*mat.VecDense, error) {
	yhat, err := f.Predict(matX)
	if err != nil {
		return nil, err
	}
	if matY.Len() != yhat.Len() {
		return nil, errorx.New(errCode.SHAPE_MISMATCH,
			fmt.Sprintf("Y长度 %d 与X行数 %d 不匹配", matY.Len(), yhat.Len()))
	}
	resid := mat.NewVecDense(matY.Len(), nil)
	resid.SubVec(matY, yhat)
	return resid, nil
}

// PartialRSquared 嵌套模型比较: 剔除drop指定列后内部重拟合受限模型
// partial R² = (SSR_受限 - SSR_全) / SSR_受限
// X需与拟合时所用矩阵同列结构; 全剔除时退化为与均值模型比较, 返回R²
// 受限模型奇异时按原定义返回0
func (f *FitResult) PartialRSquared(drop []int, matY *mat.VecDense, matX *mat.Dense) (float64, error) {
	n, kFull := matX.Dims()
	if matY.Len() != n {
		return 0, errorx.New(errCode.SHAPE_MISMATCH,
			fmt.Sprintf("Y长度 %d 与X行数 %d 不匹配", matY.Len(), n))
	}
	dropSet := make(map[int]struct{}, len(drop))
	for _, j := range drop {
		if j < 0 || j >= kFull {
			return 0, errorx.New(errCode.INVALID_VALUE,
				fmt.Sprintf("剔除列下标越界: %d (k=%d)", j, kFull))
		}
		dropSet[j] = struct{}{}
	}

	// 全模型SSR
	residFull, err := f.Residuals(matY, matX)
	if err != nil {
		return 0, err
	}
	ssrFull := mat.Dot(residFull, residFull)

	kRestricted := kFull - len(dropSet)
	if kRestricted == 0 {
		return f.RSquared, nil
	}

	// 构造受限设计矩阵(保留未剔除列, 原序)
	xr := mat.NewDense(n, kRestricted, nil)
	col := make([]float64, n)
	idx := 0
	for j := 0; j < kFull; j++ {
		if _, ok := dropSet[j]; ok {
			continue
		}
		mat.Col(col, j, matX)
		xr.SetCol(idx, col)
		idx++
	}

	core, err := solveOLS(xr, matY)
	if err != nil {
		if errorx.IsCode(err, errCode.SINGULAR_MATRIX) {
			return 0, nil
		}
		return 0, err
	}
	return (core.ssr - ssrFull) / core.ssr, nil
}
