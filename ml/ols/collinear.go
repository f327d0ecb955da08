package ols

import (
	"math"

	"linmod/infra/staticLog"

	"gonum.org/v1/gonum/mat"
)

// FilterCollinear 剔除(近似)线性相关列
// 对X做QR分解, 按列序检查R对角线: |R[j,j]| <= tol 判定该列依赖于前面的列
// tol <= 0 时取配置默认值(1e-10)
// 返回: 降维后矩阵(无剔除时原样返回), 保留列下标, 剔除列下标
func FilterCollinear(matX *mat.Dense, tol float64) (*mat.Dense, []int, []int) {
	n, k := matX.Dims()
	if tol <= 0 {
		tol = GetCollinearTol()
	}

	diag, ok := qrDiag(matX)
	if !ok {
		// 分解失败则全保留, 把失败留给求解器报奇异
		staticLog.Log.Warnf("QR分解失败, 共线检查退化为全保留 n=%d k=%d", n, k)
		kept := make([]int, k)
		for j := 0; j < k; j++ {
			kept[j] = j
		}
		return matX, kept, nil
	}

	kept := make([]int, 0, k)
	var dropped []int
	for j := 0; j < k; j++ {
		if math.Abs(diag[j]) <= tol {
			dropped = append(dropped, j)
		} else {
			kept = append(kept, j)
		}
	}
	if len(dropped) == 0 {
		return matX, kept, nil
	}

	reduced := mat.NewDense(n, len(kept), nil)
	col := make([]float64, n)
	for jj, j := range kept {
		mat.Col(col, j, matX)
		reduced.SetCol(jj, col)
	}
	return reduced, kept, dropped
}

// R对角线, 病态输入(如n<k)下gonum会panic, 这里吞掉并报失败
func qrDiag(matX *mat.Dense) (diag []float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			diag, ok = nil, false
		}
	}()

	var qr mat.QR
	qr.Factorize(matX)
	var r mat.Dense
	qr.RTo(&r)

	_, k := matX.Dims()
	diag = make([]float64, k)
	for j := 0; j < k; j++ {
		diag[j] = r.At(j, j)
	}
	return diag, true
}
